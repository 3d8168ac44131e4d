package domain

import "time"

// QueryOptions configures a question-answering request.
type QueryOptions struct {
	// TopK is the number of chunks to retrieve. Zero means the
	// configured default.
	TopK int

	// Redact overrides the process-wide redaction default when set.
	// The explicit override always wins.
	Redact *bool
}

// Answer is the result of a question-answering request.
type Answer struct {
	// Text is the generated or templated answer.
	Text string

	// Snippets are the leading characters of each retrieved chunk,
	// in score order.
	Snippets []string

	// Sources identify the retrieved chunks grounding the answer.
	// Empty when nothing was retrieved.
	Sources []RetrievalHit

	// Shortcut is true when the answer came from a structured field
	// and generation was bypassed.
	Shortcut bool
}

// IngestResult summarises a completed ingestion.
type IngestResult struct {
	DocumentID   string
	Chunks       int
	Vectors      int
	EmbedBatches int
	Elapsed      time.Duration
}
