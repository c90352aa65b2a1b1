//go:build linux

package lock

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Acquire opens (creating if needed) path and takes a non-blocking exclusive
// open file description lock over the whole file.
func Acquire(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("unable to create/open lock file: %w", err)
	}

	lk := unix.Flock_t{Type: unix.F_WRLCK, Whence: io.SeekStart}
	if err := unix.FcntlFlock(f.Fd(), unix.F_OFD_SETLK, &lk); err != nil {
		f.Close()
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EACCES) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("unable to acquire exclusive lock: %w", err)
	}

	return &FileLock{file: f}, nil
}

// Held reports whether some process holds the lock on path. It only queries
// the kernel and never takes the lock itself, so a daemon starting at the
// same moment is not turned away. A missing file is not held.
func Held(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("unable to open lock file: %w", err)
	}
	defer f.Close()

	lk := unix.Flock_t{Type: unix.F_WRLCK, Whence: io.SeekStart}
	if err := unix.FcntlFlock(f.Fd(), unix.F_OFD_GETLK, &lk); err != nil {
		return false, fmt.Errorf("unable to query lock: %w", err)
	}
	return lk.Type != unix.F_UNLCK, nil
}
