package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bioboy/slowkicker/internal/glftpd"
)

type fakeSignaller struct {
	mu           sync.Mutex
	dead         map[int]bool
	terminateErr error
	terminated   []int
}

func (f *fakeSignaller) Alive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dead[pid]
}

func (f *fakeSignaller) Terminate(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, pid)
	return f.terminateErr
}

type fakeSource struct {
	sessions []glftpd.Session
	err      error
	calls    int
}

func (f *fakeSource) Sample(ctx context.Context) ([]glftpd.Session, error) {
	f.calls++
	return f.sessions, f.err
}

type fakeUndupe struct {
	calls [][2]string
	err   error
}

func (f *fakeUndupe) Run(ctx context.Context, username, filename string) error {
	f.calls = append(f.calls, [2]string{username, filename})
	return f.err
}

type fakeGroups map[int32]string

func (g fakeGroups) GroupName(gid int32) string {
	if name, ok := g[gid]; ok {
		return name
	}
	return glftpd.DefaultGroupName
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// writeUpload creates root+dir/name holding size zero bytes.
func writeUpload(t *testing.T, root, dir, name string, size int) {
	t.Helper()
	full := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(full, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(full, name), make([]byte, size), 0o644))
}
