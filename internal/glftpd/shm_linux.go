//go:build linux

package glftpd

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// SharedMemory reads the online users table from the SysV shared memory
// segment identified by Key.
type SharedMemory struct {
	Key int
}

// NewSharedMemory creates a source bound to the given IPC key.
func NewSharedMemory(key int) *SharedMemory {
	return &SharedMemory{Key: key}
}

// Sample attaches the segment read-only, copies every record out and detaches.
// A missing segment means glftpd has nobody online yet and yields no sessions.
func (s *SharedMemory) Sample(ctx context.Context) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := unix.SysvShmGet(s.Key, 0, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to open online users: shmget: %w", err)
	}

	segment, err := unix.SysvShmAttach(id, 0, unix.SHM_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("unable to open online users: shmat: %w", err)
	}
	defer func() { _ = unix.SysvShmDetach(segment) }()

	var ds unix.SysvShmDesc
	if _, err := unix.SysvShmCtl(id, unix.IPC_STAT, &ds); err != nil {
		return nil, fmt.Errorf("unable to open online users: shmctl: %w", err)
	}

	size := int(ds.Segsz)
	if size > len(segment) {
		size = len(segment)
	}
	return DecodeTable(segment[:size])
}
