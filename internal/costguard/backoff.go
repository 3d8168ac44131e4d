package costguard

import (
	"context"
	"time"
)

// Backoff defaults for the provider retry loop.
const (
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 8 * time.Second

	// MaxAttempts is the fixed attempt ceiling for provider calls.
	MaxAttempts = 5
)

// Backoff yields an exponential wait schedule: each Next call returns
// the current wait and doubles it up to the maximum.
type Backoff struct {
	next time.Duration
	max  time.Duration
}

// NewBackoff creates a schedule with the default initial and maximum
// waits.
func NewBackoff() *Backoff {
	return NewBackoffWith(DefaultBackoffInitial, DefaultBackoffMax)
}

// NewBackoffWith creates a schedule starting at initial and capped at
// max. Zero values use the defaults.
func NewBackoffWith(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if max <= 0 {
		max = DefaultBackoffMax
	}
	return &Backoff{next: initial, max: max}
}

// Next returns the wait before the following attempt.
func (b *Backoff) Next() time.Duration {
	wait := b.next
	if wait > b.max {
		wait = b.max
	}
	b.next = b.next * 2
	if b.next > b.max {
		b.next = b.max
	}
	return wait
}

// Sleep waits for the next scheduled interval or until the context is
// cancelled.
func (b *Backoff) Sleep(ctx context.Context) error {
	timer := time.NewTimer(b.Next())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
