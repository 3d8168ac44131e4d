package driven

import (
	"context"

	"github.com/tessella-labs/policyq/internal/core/domain"
)

// VectorStore is the nearest-neighbour index with its parallel metadata
// sequence. Vectors and metadata always mutate together: row i of the
// index corresponds to element i of the metadata, for the lifetime of
// the store.
type VectorStore interface {
	// Add appends vectors with their metadata, 1:1 and in order, and
	// persists the store synchronously. The first call fixes the index
	// dimensionality; later batches must match it.
	Add(ctx context.Context, vectors [][]float32, metas []domain.ChunkMetadata) error

	// Search returns up to k entries ordered by descending cosine
	// similarity to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// All returns every stored metadata record in insertion order.
	// Used by the structured-field shortcut's global fallback.
	All(ctx context.Context) ([]domain.ChunkMetadata, error)

	// Size returns the number of stored entries.
	Size() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Score is the cosine similarity (inner product of normalised
	// vectors) against the query.
	Score float64

	// Metadata is the stored record at the matched row.
	Metadata domain.ChunkMetadata
}
