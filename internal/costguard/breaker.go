package costguard

import (
	"sync"
	"time"
)

// CircuitBreaker stops calling a failing dependency for a cooldown
// period. It transitions to open after a configured number of
// consecutive failures without an intervening success. While open, all
// calls are rejected until the reset timeout has elapsed since the last
// recorded failure; the breaker then optimistically closes again on the
// next check. There is no separate half-open probe state: the next call
// is simply allowed and may re-open the breaker on failure.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	resetTimeout     time.Duration
	failureCount     int
	lastFailure      time.Time
	open             bool

	now func() time.Time
}

// NewCircuitBreaker creates a breaker with the given consecutive-failure
// threshold and reset timeout.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed, closing the breaker when the
// reset timeout has elapsed.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if b.lastFailure.IsZero() {
		return false
	}
	if b.now().Sub(b.lastFailure) >= b.resetTimeout {
		b.open = false
		b.failureCount = 0
		return true
	}
	return false
}

// RecordSuccess closes the breaker and clears the failure streak.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.open = false
	b.lastFailure = time.Time{}
}

// RecordFailure extends the failure streak, opening the breaker once the
// threshold is reached.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.lastFailure = b.now()
	if b.failureCount >= b.failureThreshold {
		b.open = true
	}
}

// IsOpen reports the current breaker state without side effects.
func (b *CircuitBreaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
