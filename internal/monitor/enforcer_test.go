package monitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioboy/slowkicker/internal/glftpd"
)

type enforcerFixture struct {
	root     string
	sig      *fakeSignaller
	undupe   *fakeUndupe
	logger   *recordingLogger
	enforcer *Enforcer
}

func newEnforcerFixture(t *testing.T, categories bool) *enforcerFixture {
	t.Helper()

	f := &enforcerFixture{
		root:   t.TempDir(),
		sig:    &fakeSignaller{},
		undupe: &fakeUndupe{},
		logger: &recordingLogger{},
	}
	f.enforcer = NewEnforcer(EnforcerConfig{
		Root:       f.root,
		Signaller:  f.sig,
		Undupe:     f.undupe,
		Groups:     fakeGroups{100: "iso"},
		Categories: categories,
		ServerLog:  NewServerLog(filepath.Join(f.root, "glftpd.log"), categories),
		Logger:     f.logger,
	})
	f.enforcer.now = func() time.Time { return testNow }
	return f
}

func kickSession() glftpd.Session {
	return glftpd.Session{
		Username:   "alice",
		GroupID:    100,
		CurrentDir: "/site/iso/rel",
		Status:     "STOR file.rar",
		PID:        4242,
	}
}

func TestEnforceKicksSlowUpload(t *testing.T) {
	f := newEnforcerFixture(t, true)
	writeUpload(t, f.root, "/site/iso/rel", "file.rar", 100)

	event, err := f.enforcer.Enforce(context.Background(), kickSession(), "/site/iso/rel/file.rar", KickOutcome{Kick: true, Speed: 24.4, Duration: 20})
	require.NoError(t, err)

	assert.Equal(t, []int{4242}, f.sig.terminated)
	assert.NoFileExists(t, filepath.Join(f.root, "site/iso/rel/file.rar"))
	assert.Equal(t, [][2]string{{"alice", "file.rar"}}, f.undupe.calls)

	assert.Equal(t, CategorySlow, event.Category)
	assert.Equal(t, "iso", event.Group)
	assert.Equal(t, int64(100), event.Size)
	assert.Equal(t, 4242, event.PID)
	assert.NotEmpty(t, event.ID)

	assert.Equal(t, []string{"Kicked user for slow uploading: alice: 24kB/s: /site/iso/rel/file.rar"}, f.logger.Lines())

	data, err := os.ReadFile(filepath.Join(f.root, "glftpd.log"))
	require.NoError(t, err)
	assert.Equal(t, FormatTimestamp(testNow)+` SLOW: "/site/iso/rel/file.rar" "alice" "iso" "24"`+"\n", string(data))
}

func TestEnforceClassification(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		speed      float64
		categories bool
		expected   Category
		reason     string
	}{
		{"zero byte", 0, 0, true, CategoryZeroByte, "zero byte"},
		{"stalled", 10, 0, true, CategoryStalled, "stalling upload"},
		{"slow", 10, 3, true, CategorySlow, "slow uploading"},
		{"zero byte without categories", 0, 0, false, CategorySlow, "slow uploading"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEnforcerFixture(t, tt.categories)
			writeUpload(t, f.root, "/site/iso/rel", "file.rar", tt.size)

			event, err := f.enforcer.Enforce(context.Background(), kickSession(), "/site/iso/rel/file.rar", KickOutcome{Kick: true, Speed: tt.speed})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, event.Category)

			lines := f.logger.Lines()
			require.Len(t, lines, 1)
			assert.Contains(t, lines[0], "Kicked user for "+tt.reason+":")
		})
	}
}

func TestEnforceServerLogFormats(t *testing.T) {
	f := newEnforcerFixture(t, false)
	writeUpload(t, f.root, "/site/iso/rel", "file.rar", 0)

	_, err := f.enforcer.Enforce(context.Background(), kickSession(), "/site/iso/rel/file.rar", KickOutcome{Kick: true, Speed: 0})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(f.root, "glftpd.log"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), ` SLOWKICK: "/site/iso/rel/file.rar" "alice" "0"`+"\n"), "got %q", data)
}

func TestEnforceProcessGone(t *testing.T) {
	f := newEnforcerFixture(t, true)
	f.sig.terminateErr = ErrProcessGone
	writeUpload(t, f.root, "/site/iso/rel", "file.rar", 100)

	event, err := f.enforcer.Enforce(context.Background(), kickSession(), "/site/iso/rel/file.rar", KickOutcome{Kick: true})
	assert.Nil(t, event)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepSignal, stepErr.Step)
	assert.True(t, IsExpectedAbsence(err), "process gone is an expected absence")

	assert.FileExists(t, filepath.Join(f.root, "site/iso/rel/file.rar"), "file survives a failed signal")
	assert.Empty(t, f.undupe.calls)
	assert.Empty(t, f.logger.Lines())
}

func TestEnforceSignalError(t *testing.T) {
	f := newEnforcerFixture(t, true)
	f.sig.terminateErr = errors.New("operation not permitted")

	_, err := f.enforcer.Enforce(context.Background(), kickSession(), "/site/iso/rel/file.rar", KickOutcome{Kick: true})
	require.Error(t, err)
	assert.False(t, IsExpectedAbsence(err), "permission errors are reported: %v", err)
}

func TestEnforceFileGone(t *testing.T) {
	f := newEnforcerFixture(t, true)
	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "site/iso/rel"), 0o755))

	event, err := f.enforcer.Enforce(context.Background(), kickSession(), "/site/iso/rel/file.rar", KickOutcome{Kick: true})
	assert.Nil(t, event)
	require.ErrorIs(t, err, ErrFileGone)
	assert.Len(t, f.sig.terminated, 1, "the process is terminated before the stat")
	assert.Empty(t, f.undupe.calls)
	assert.NoFileExists(t, filepath.Join(f.root, "glftpd.log"))
}

func TestEnforceUndupeFailureIsLogged(t *testing.T) {
	f := newEnforcerFixture(t, true)
	f.undupe.err = errors.New("exit status 1")
	writeUpload(t, f.root, "/site/iso/rel", "file.rar", 100)

	_, err := f.enforcer.Enforce(context.Background(), kickSession(), "/site/iso/rel/file.rar", KickOutcome{Kick: true, Speed: 5})
	require.NoError(t, err, "undupe failures do not fail the kick")

	lines := f.logger.Lines()
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Undupe failed: alice: /site/iso/rel/file.rar"), "got %q", lines[0])
}

func TestEnforceWritesJournal(t *testing.T) {
	f := newEnforcerFixture(t, true)
	journalPath := filepath.Join(f.root, "logs", "kicks.jsonl")
	journal, err := NewJournal(journalPath)
	require.NoError(t, err)
	defer journal.Close()
	f.enforcer.config.Journal = journal
	writeUpload(t, f.root, "/site/iso/rel", "file.rar", 100)

	event, err := f.enforcer.Enforce(context.Background(), kickSession(), "/site/iso/rel/file.rar", KickOutcome{Kick: true, Speed: 5})
	require.NoError(t, err)

	events, err := ReadJournal(journalPath)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)
	assert.Equal(t, "/site/iso/rel/file.rar", events[0].Path)
}

func TestOwnerMatchesProcess(t *testing.T) {
	assert.False(t, ownerMatchesProcess(0, 4242), "unknown owner")
	assert.True(t, ownerMatchesProcess(1000, 1000))
}
