package player

import (
	"sync"
	"time"
)

// ErrorTracker counts recent playback errors per node inside a sliding
// window approximated by reset-on-stale-then-increment. The approximation
// is deliberate: the cost of a false positive is one extra migration, which
// is cheap next to a precise rolling window. Threshold checks belong to
// the caller; the tracker only counts.
type ErrorTracker struct {
	mu     sync.Mutex
	window time.Duration
	counts map[string]int
	last   map[string]time.Time
}

// NewErrorTracker creates a tracker with the given window duration.
func NewErrorTracker(window time.Duration) *ErrorTracker {
	return &ErrorTracker{
		window: window,
		counts: make(map[string]int),
		last:   make(map[string]time.Time),
	}
}

// RecordError registers one error for a node at the given instant and
// returns the resulting count. If the previous error is older than the
// window, the count restarts at one.
func (t *ErrorTracker) RecordError(nodeID string, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.last[nodeID]; ok && now.Sub(last) > t.window {
		t.counts[nodeID] = 0
	}
	t.counts[nodeID]++
	t.last[nodeID] = now
	return t.counts[nodeID]
}

// Count returns the node's current error count without mutating it.
func (t *ErrorTracker) Count(nodeID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[nodeID]
}

// Reset clears a node's count. Called after migrating away from a node so
// a temporarily overloaded node gets a second chance instead of a
// permanent blacklist.
func (t *ErrorTracker) Reset(nodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, nodeID)
	delete(t.last, nodeID)
}
