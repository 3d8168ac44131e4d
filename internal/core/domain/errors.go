package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoExtractableText indicates no text could be recovered from a
	// document after all extraction strategies. The ingestion is
	// rejected with no partial index mutation.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrBudgetExceeded indicates a single text unit's estimated token
	// count exceeds the configured ceiling. The call is rejected before
	// any network activity and is not retried.
	ErrBudgetExceeded = errors.New("estimated tokens exceed configured budget")

	// ErrCircuitOpen indicates the provider circuit breaker is open.
	// Calls are rejected immediately until the reset timeout elapses.
	ErrCircuitOpen = errors.New("service temporarily unavailable: circuit open")

	// ErrProviderFailure indicates the embedding or generation provider
	// failed after the bounded retry loop was exhausted.
	ErrProviderFailure = errors.New("provider request failed")

	// ErrDimensionMismatch indicates a vector's dimensionality does not
	// match the dimensionality the index was created with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Ingestion and semantic retrieval are disabled.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the generation service is not
	// configured. Only structured-field answers are possible.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)
