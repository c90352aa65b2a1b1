package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountAndIncrement(t *testing.T) {
	h, err := New(DefaultCapacity)
	require.NoError(t, err)

	assert.Equal(t, 0, h.Count("bob", "/site/iso/rel/a.rar"))

	assert.Equal(t, 1, h.Increment("bob", "/site/iso/rel/a.rar"))
	assert.Equal(t, 2, h.Increment("bob", "/site/iso/rel/a.rar"))
	assert.Equal(t, 2, h.Count("bob", "/site/iso/rel/a.rar"))

	// Keys are exact (user, path) pairs.
	assert.Equal(t, 0, h.Count("alice", "/site/iso/rel/a.rar"))
	assert.Equal(t, 0, h.Count("bob", "/site/iso/rel/A.rar"))
	assert.Equal(t, 1, h.Len())
}

func TestMonotonicCount(t *testing.T) {
	h, err := New(10)
	require.NoError(t, err)

	prev := 0
	for i := 0; i < 50; i++ {
		n := h.Increment("bob", "/p")
		assert.Greater(t, n, prev)
		assert.Equal(t, n, h.Count("bob", "/p"))
		prev = n
	}
}

func TestEvictsOldestInserted(t *testing.T) {
	h, err := New(DefaultCapacity)
	require.NoError(t, err)

	var evicted []Record
	h.SetOnEvict(func(r Record) { evicted = append(evicted, r) })

	for i := 0; i < DefaultCapacity; i++ {
		h.Increment(fmt.Sprintf("user%d", i), "/site/iso/rel/a.rar")
	}
	require.Equal(t, DefaultCapacity, h.Len())

	// Touching the oldest record must not protect it from eviction.
	h.Increment("user0", "/site/iso/rel/a.rar")
	assert.Equal(t, 2, h.Count("user0", "/site/iso/rel/a.rar"))

	h.Increment("newcomer", "/site/iso/rel/a.rar")

	assert.Equal(t, DefaultCapacity, h.Len())
	require.Len(t, evicted, 1)
	assert.Equal(t, "user0", evicted[0].Username)
	assert.Equal(t, 0, h.Count("user0", "/site/iso/rel/a.rar"))
	assert.Equal(t, 1, h.Count("user1", "/site/iso/rel/a.rar"))
	assert.Equal(t, 1, h.Count("newcomer", "/site/iso/rel/a.rar"))
}

func TestRecordsOldestFirst(t *testing.T) {
	h, err := New(3)
	require.NoError(t, err)

	h.Increment("a", "/1")
	h.Increment("b", "/2")
	h.Increment("a", "/1")
	h.Increment("c", "/3")
	h.Increment("d", "/4")

	records := h.Records()
	require.Len(t, records, 3)
	assert.Equal(t, []Record{
		{Username: "b", Path: "/2", KickCount: 1},
		{Username: "c", Path: "/3", KickCount: 1},
		{Username: "d", Path: "/4", KickCount: 1},
	}, records)
}

func TestNewRejectsZeroCapacity(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}

func TestOnEvictMayReadHistory(t *testing.T) {
	h, err := New(1)
	require.NoError(t, err)

	var lens []int
	h.SetOnEvict(func(r Record) {
		lens = append(lens, h.Len())
		assert.Equal(t, 0, h.Count(r.Username, r.Path))
		assert.Len(t, h.Records(), 1)
	})

	h.Increment("bob", "/site/iso/rel/a.rar")

	done := make(chan struct{})
	go func() {
		h.Increment("eve", "/site/iso/rel/b.rar")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Increment deadlocked in the eviction callback")
	}
	assert.Equal(t, []int{1}, lens)
}
