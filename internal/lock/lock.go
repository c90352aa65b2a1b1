// Package lock provides the single-instance lock held for the daemon's lifetime.
package lock

import (
	"errors"
	"os"
)

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("slowkicker is already running")

// FileLock is an exclusive lock on a lock file, held until Release.
type FileLock struct {
	file *os.File
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.file.Name()
}

// Release unlocks and closes the lock file. The file itself is left in place.
func (l *FileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
