//go:build linux

package glftpd

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// testShmKey picks a key unlikely to collide with a real glftpd segment and
// removes anything left behind by an earlier run.
func testShmKey(t *testing.T) int {
	t.Helper()
	key := 0x5100000 + os.Getpid()%0x10000
	if id, err := unix.SysvShmGet(key, 0, 0); err == nil {
		_, _ = unix.SysvShmCtl(id, unix.IPC_RMID, nil)
	}
	return key
}

func TestSharedMemoryMissingSegment(t *testing.T) {
	key := testShmKey(t)

	sessions, err := NewSharedMemory(key).Sample(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sessions)
}

func TestSharedMemorySample(t *testing.T) {
	key := testShmKey(t)

	id, err := unix.SysvShmGet(key, 2*RecordSize, unix.IPC_CREAT|0o600)
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
		t.Skipf("SysV shared memory unavailable: %v", err)
	}
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = unix.SysvShmCtl(id, unix.IPC_RMID, nil) })

	segment, err := unix.SysvShmAttach(id, 0, 0)
	require.NoError(t, err)
	copy(segment, encodeRecord(testRecord{
		username:   "bob",
		status:     "STOR a.rar",
		currentDir: "/site/iso/x",
		pid:        1,
	}))
	copy(segment[RecordSize:], encodeRecord(testRecord{
		username: "eve",
		status:   "IDLE",
		pid:      2,
	}))
	require.NoError(t, unix.SysvShmDetach(segment))

	sessions, err := NewSharedMemory(key).Sample(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, "bob", sessions[0].Username)
	assert.Equal(t, "STOR a.rar", sessions[0].Status)
	assert.Equal(t, "/site/iso/x", sessions[0].CurrentDir)
	assert.Equal(t, 1, sessions[0].PID)

	assert.Equal(t, "eve", sessions[1].Username)
	assert.Equal(t, "IDLE", sessions[1].Status)
	assert.Equal(t, 2, sessions[1].PID)
}

func TestSharedMemorySampleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSharedMemory(testShmKey(t)).Sample(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
