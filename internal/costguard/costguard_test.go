package costguard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessella-labs/policyq/internal/core/domain"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("ab"))
	assert.Equal(t, 25, EstimateTokens(string(make([]byte, 100))))
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewCircuitBreaker(5, time.Minute)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		assert.True(t, b.Allow(), "breaker must stay closed below threshold")
	}

	b.RecordFailure()
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow())
}

func TestCircuitBreaker_SuccessResetsStreak(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	assert.False(t, b.IsOpen(), "streak must restart after a success")
}

func TestCircuitBreaker_ClosesAfterResetTimeout(t *testing.T) {
	b := NewCircuitBreaker(2, 30*time.Second)

	current := time.Unix(1000, 0)
	b.now = func() time.Time { return current }

	b.RecordFailure()
	b.RecordFailure()
	require.False(t, b.Allow())

	// one second short of the reset timeout: still open
	current = current.Add(29 * time.Second)
	assert.False(t, b.Allow())

	// past the timeout: optimistic half-reset, next call allowed
	current = current.Add(2 * time.Second)
	assert.True(t, b.Allow())
	assert.False(t, b.IsOpen())

	// a fresh failure streak can re-open it
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.Allow())
}

func TestGuard_BeforeRequestRejectsWhenOpen(t *testing.T) {
	g := New(Config{RatePerSec: 1000, FailureThreshold: 2, ResetTimeout: time.Hour})

	g.AfterFailure(errors.New("boom"))
	g.AfterFailure(errors.New("boom again"))

	err := g.BeforeRequest(context.Background())
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.Equal(t, "boom again", g.LastError())
}

func TestGuard_CountsRequestsAndTokens(t *testing.T) {
	g := New(Config{RatePerSec: 1000})

	require.NoError(t, g.BeforeRequest(context.Background()))
	g.AfterSuccess(42)
	require.NoError(t, g.BeforeRequest(context.Background()))
	g.AfterSuccess(8)

	assert.Equal(t, 2, g.TotalRequests())
	assert.Equal(t, 50, g.TotalTokens())
}

func TestGuard_EnforceBudget(t *testing.T) {
	g := New(Config{MaxTokens: 10})

	assert.NoError(t, g.EnforceBudget("short prompt", ""))

	long := make([]byte, 100)
	err := g.EnforceBudget(string(long), "")
	assert.ErrorIs(t, err, domain.ErrBudgetExceeded)

	// prompt and completion estimates are summed
	half := string(make([]byte, 24))
	assert.ErrorIs(t, g.EnforceBudget(half, half), domain.ErrBudgetExceeded)
}

func TestBackoff_Schedule(t *testing.T) {
	b := NewBackoffWith(500*time.Millisecond, 8*time.Second)

	waits := []time.Duration{
		b.Next(), b.Next(), b.Next(), b.Next(), b.Next(), b.Next(),
	}

	assert.Equal(t, []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second,
	}, waits)
}
