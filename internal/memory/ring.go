// Package memory holds what the agents remember: a small in-process ring of
// recent entries per agent plus a sqlite store for anything that must survive
// a restart, most importantly the peak balance the drawdown check compares
// against.
package memory

import (
	"sync"
	"time"
)

// DefaultShortTermCap bounds each agent's short-term ring.
const DefaultShortTermCap = 50

// Entry is one remembered observation.
type Entry struct {
	Agent   string    `json:"agent"`
	Symbol  string    `json:"symbol,omitempty"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// Ring is a fixed-capacity FIFO of entries. When full, Add evicts the oldest.
// Safe for concurrent use.
type Ring struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
}

// NewRing returns a ring with the given capacity, or DefaultShortTermCap when
// capacity is not positive.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultShortTermCap
	}
	return &Ring{cap: capacity}
}

// Add appends an entry, evicting the oldest when at capacity.
func (r *Ring) Add(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == r.cap {
		copy(r.entries, r.entries[1:])
		r.entries[len(r.entries)-1] = e
		return
	}
	r.entries = append(r.entries, e)
}

// Recent returns up to n most recent entries, oldest first. n <= 0 returns
// everything.
func (r *Ring) Recent(n int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := 0
	if n > 0 && len(r.entries) > n {
		start = len(r.entries) - n
	}
	out := make([]Entry, len(r.entries)-start)
	copy(out, r.entries[start:])
	return out
}

// Len reports the current number of entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
