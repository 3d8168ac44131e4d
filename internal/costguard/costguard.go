// Package costguard protects the external embedding and generation
// providers from runaway usage. It combines a token-bucket rate limiter,
// a consecutive-failure circuit breaker and a pre-flight token budget
// check into a single guard that call sites wrap around provider
// requests.
package costguard

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tessella-labs/policyq/internal/core/domain"
)

// Defaults applied when Config fields are zero.
const (
	DefaultRatePerSec       = 2.0
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 60 * time.Second
	DefaultMaxTokens        = 300
	DefaultTemperature      = 0.2
)

// EstimateTokens is a rough token estimator (~4 characters per token).
// Any non-empty text counts as at least one token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

// Config configures a Guard.
type Config struct {
	// RatePerSec is the token-bucket capacity and refill rate.
	// Zero or negative disables rate limiting.
	RatePerSec float64

	// FailureThreshold is the number of consecutive failures that
	// opens the circuit (default 5).
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open after the last
	// recorded failure (default 60s).
	ResetTimeout time.Duration

	// MaxTokens is the per-call token budget ceiling (default 300).
	MaxTokens int

	// Temperature is carried for generation call sites (default 0.2).
	Temperature float64
}

// Guard is the process-wide usage guard for one external dependency.
// It is safe for concurrent callers from multiple requests; the rate
// limiter is the only structure requiring cross-request mutual
// exclusion.
type Guard struct {
	limiter *rate.Limiter
	breaker *CircuitBreaker

	maxTokens   int
	temperature float64

	mu            sync.Mutex
	totalTokens   int
	totalRequests int
	lastError     string
}

// New creates a guard with defaults filled in for zero config values.
func New(cfg Config) *Guard {
	if cfg.RatePerSec == 0 {
		cfg.RatePerSec = DefaultRatePerSec
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.ResetTimeout == 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		burst := int(cfg.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	return &Guard{
		limiter:     limiter,
		breaker:     NewCircuitBreaker(cfg.FailureThreshold, cfg.ResetTimeout),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// BeforeRequest gates a provider call. It fails fast with ErrCircuitOpen
// when the breaker is open, otherwise blocks on the rate limiter just
// long enough to bring the bucket non-negative.
func (g *Guard) BeforeRequest(ctx context.Context) error {
	if !g.breaker.Allow() {
		return domain.ErrCircuitOpen
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	g.mu.Lock()
	g.totalRequests++
	g.mu.Unlock()
	return nil
}

// AfterSuccess records a successful provider call.
func (g *Guard) AfterSuccess(tokensUsed int) {
	g.mu.Lock()
	g.totalTokens += tokensUsed
	g.mu.Unlock()
	g.breaker.RecordSuccess()
}

// AfterFailure records a failed provider call and feeds the breaker.
func (g *Guard) AfterFailure(err error) {
	g.mu.Lock()
	if err != nil {
		g.lastError = err.Error()
	}
	g.mu.Unlock()
	g.breaker.RecordFailure()
}

// EnforceBudget rejects a call up front when the estimated token count
// of prompt plus completion exceeds the configured ceiling. This is a
// pre-flight guard, not a post-hoc truncation.
func (g *Guard) EnforceBudget(prompt, completion string) error {
	estimated := EstimateTokens(prompt)
	if completion != "" {
		estimated += EstimateTokens(completion)
	}
	if estimated > g.maxTokens {
		return domain.ErrBudgetExceeded
	}
	return nil
}

// MaxTokens returns the configured per-call token ceiling.
func (g *Guard) MaxTokens() int {
	return g.maxTokens
}

// Temperature returns the configured generation temperature.
func (g *Guard) Temperature() float64 {
	return g.temperature
}

// TotalTokens returns the running token usage estimate.
func (g *Guard) TotalTokens() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalTokens
}

// TotalRequests returns the number of guarded calls attempted.
func (g *Guard) TotalRequests() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalRequests
}

// LastError returns the most recent recorded failure message.
func (g *Guard) LastError() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastError
}
