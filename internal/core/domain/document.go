package domain

import "time"

// Document represents an ingested policy document.
// It is the canonical representation after PDF text extraction
// and normalisation.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Source is the original filename the document was uploaded as.
	Source string

	// Content is the full normalised text before chunking.
	Content string

	// PageOffsets is the ascending list of per-page starting character
	// offsets into Content. Empty when page boundaries are unknown.
	PageOffsets []int

	// Fields contains structured values extracted from Content.
	Fields map[string]string

	// ChunkCount is the number of chunks produced at ingestion.
	ChunkCount int

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}
