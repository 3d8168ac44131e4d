// Package domain defines the core business entities for policyq.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested policy document
//   - Chunk: A bounded span of document text with tracked offsets
//   - ChunkMetadata: The persisted per-chunk record owned by the vector store
//   - RetrievedChunk: A single similarity-search hit
//   - IngestEvent / QueryEvent: Append-only audit ledger records
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
