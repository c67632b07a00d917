// Package runstate records which sites currently have an audit in flight.
package runstate

import (
	"sort"
	"sync"
)

// Tracker is the set of slugs with an active run. A slug is present exactly
// while one audit task runs for it. All methods share one mutex, so
// TryReserve's check and insert happen atomically with respect to every
// other call.
type Tracker struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{running: make(map[string]struct{})}
}

// TryReserve marks slug as running. It returns false, without changing
// anything, if slug is already running.
func (t *Tracker) TryReserve(slug string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.running[slug]; ok {
		return false
	}
	t.running[slug] = struct{}{}
	return true
}

// Release removes slug. Releasing a slug that is not running is a no-op.
func (t *Tracker) Release(slug string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.running, slug)
}

// IsRunning reports whether slug is reserved.
func (t *Tracker) IsRunning(slug string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.running[slug]
	return ok
}

// Running returns the reserved slugs in sorted order.
func (t *Tracker) Running() []string {
	t.mu.Lock()
	out := make([]string, 0, len(t.running))
	for slug := range t.running {
		out = append(out, slug)
	}
	t.mu.Unlock()

	sort.Strings(out)
	return out
}

// Len returns the number of reserved slugs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.running)
}
