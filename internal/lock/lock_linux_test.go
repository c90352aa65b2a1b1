//go:build linux

package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slowkicker.lock")

	held, err := Held(path)
	require.NoError(t, err)
	assert.False(t, held, "missing lock file")

	l, err := Acquire(path)
	require.NoError(t, err)

	held, err = Held(path)
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, l.Release())

	held, err = Held(path)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestHeldDoesNotTakeLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slowkicker.lock")
	first, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	held, err := Held(path)
	require.NoError(t, err)
	require.False(t, held)

	// A daemon starting right after the query still gets the lock.
	l, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}
