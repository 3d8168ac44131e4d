package driving

import (
	"context"

	"github.com/tessella-labs/policyq/internal/core/domain"
)

// QueryService answers questions grounded in the indexed documents.
type QueryService interface {
	// Ask expands the query, retrieves grounding chunks and either
	// answers from a structured field (bypassing generation) or asks
	// the generation service. Empty retrieval is not an error: the
	// answer is an explicit "I don't know." with no sources.
	Ask(ctx context.Context, query string, opts domain.QueryOptions) (*domain.Answer, error)
}
