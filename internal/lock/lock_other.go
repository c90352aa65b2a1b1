//go:build !linux

package lock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Acquire opens (creating if needed) path and takes a non-blocking exclusive flock.
func Acquire(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("unable to create/open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("unable to acquire exclusive lock: %w", err)
	}

	return &FileLock{file: f}, nil
}

// Held is only implemented on Linux, where the lock can be queried without
// being taken.
func Held(path string) (bool, error) {
	return false, errors.ErrUnsupported
}
