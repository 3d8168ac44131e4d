package driven

import "context"

// LLMService produces grounded answers from retrieved context.
// This is an optional service - when nil, only structured-field
// shortcut answers are possible.
type LLMService interface {
	// Answer generates a completion for the query grounded strictly in
	// the given context blocks.
	Answer(ctx context.Context, query string, contextBlocks []string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// MaxTokens returns the completion token budget the service
	// enforces per call.
	MaxTokens() int

	// Temperature returns the sampling temperature in use.
	Temperature() float64

	// Close releases resources.
	Close() error
}
