package driving

import (
	"context"

	"github.com/tessella-labs/policyq/internal/core/domain"
)

// IngestService turns uploaded document bytes into indexed chunks.
type IngestService interface {
	// Ingest extracts text from the document bytes, chunks it, embeds
	// the chunks and appends them to the vector store. It returns
	// domain.ErrNoExtractableText when no strategy recovered any text;
	// in that case nothing is indexed.
	Ingest(ctx context.Context, content []byte, filename string) (*domain.IngestResult, error)
}
