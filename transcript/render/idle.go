package render

import (
	"context"
	"sync"
	"time"
)

// IdleTracker records in-flight network requests and reports quiescence: no request in
// flight and no activity for an idle window.
type IdleTracker struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	last     time.Time
	now      func() time.Time
}

func NewIdleTracker() *IdleTracker {
	return &IdleTracker{inflight: make(map[string]struct{}), last: time.Now(), now: time.Now}
}

// Start marks a request as in flight.
func (t *IdleTracker) Start(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.last = t.now()
}

// Done marks a request finished or failed. Unknown IDs still count as activity.
func (t *IdleTracker) Done(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
	t.last = t.now()
}

// InFlight returns the number of open requests.
func (t *IdleTracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

// Idle reports whether nothing is in flight and the last activity is at least window ago.
func (t *IdleTracker) Idle(window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && t.now().Sub(t.last) >= window
}

// Wait blocks until the tracker is idle for window, polling every poll. It returns
// ctx.Err() when ctx ends first.
func (t *IdleTracker) Wait(ctx context.Context, window, poll time.Duration) error {
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	tick := time.NewTicker(poll)
	defer tick.Stop()
	for {
		if t.Idle(window) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}
