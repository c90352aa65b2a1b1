// Package history tracks how many times a user was kicked while uploading a given path.
package history

import (
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCapacity is the number of (user, path) records kept in memory.
const DefaultCapacity = 1000

// Record is the kick count for one (user, path) pair.
type Record struct {
	Username  string `json:"username"`
	Path      string `json:"path"`
	KickCount int    `json:"kick_count"`
}

type key struct {
	username string
	path     string
}

// History is a bounded store of kick counts.
//
// Records are only ever inserted with Add and read back with Peek, so the
// LRU never reorders them and eviction is strictly oldest-inserted first.
type History struct {
	mu      sync.Mutex
	records *simplelru.LRU[key, *Record]
	onEvict func(Record)
	evictq  []Record
}

// New creates a history holding at most capacity records.
func New(capacity int) (*History, error) {
	h := &History{}
	records, err := simplelru.NewLRU[key, *Record](capacity, h.evicted)
	if err != nil {
		return nil, fmt.Errorf("failed to create history: %w", err)
	}
	h.records = records
	return h, nil
}

// SetOnEvict registers a callback invoked when the oldest record is dropped.
// The callback runs after the history is unlocked and may call back into it.
func (h *History) SetOnEvict(fn func(Record)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvict = fn
}

// evicted runs inside Add with mu held; the record is queued for Increment
// to report once it unlocks.
func (h *History) evicted(_ key, r *Record) {
	if h.onEvict != nil {
		h.evictq = append(h.evictq, *r)
	}
}

// Count returns the number of recorded kicks for username on path.
func (h *History) Count(username, path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.records.Peek(key{username, path}); ok {
		return r.KickCount
	}
	return 0
}

// Increment records one more kick for username on path and returns the new count.
func (h *History) Increment(username, path string) int {
	h.mu.Lock()
	k := key{username, path}
	if r, ok := h.records.Peek(k); ok {
		r.KickCount++
		n := r.KickCount
		h.mu.Unlock()
		return n
	}
	h.records.Add(k, &Record{Username: username, Path: path, KickCount: 1})
	dropped, fn := h.evictq, h.onEvict
	h.evictq = nil
	h.mu.Unlock()

	for _, r := range dropped {
		fn(r)
	}
	return 1
}

// Len returns the number of records held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.records.Len()
}

// Records returns a copy of all records, oldest first.
func (h *History) Records() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	values := h.records.Values()
	out := make([]Record, 0, len(values))
	for _, r := range values {
		out = append(out, *r)
	}
	return out
}
