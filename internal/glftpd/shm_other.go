//go:build !linux

package glftpd

import (
	"context"
	"fmt"
)

// SharedMemory stub for non-Linux platforms
type SharedMemory struct {
	Key int
}

// NewSharedMemory creates a source bound to the given IPC key.
func NewSharedMemory(key int) *SharedMemory {
	return &SharedMemory{Key: key}
}

// Sample returns an error on non-Linux platforms
func (s *SharedMemory) Sample(ctx context.Context) ([]Session, error) {
	return nil, fmt.Errorf("reading the glftpd online table is only supported on Linux")
}
