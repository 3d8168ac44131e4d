package domain

// ChunkMetadata is the persisted per-chunk record, one per chunk ever
// ingested. It is exclusively owned by the vector store: its position in
// the metadata sequence always equals the corresponding row index in the
// vector index. Records are never deleted (append-only design).
type ChunkMetadata struct {
	DocumentID string            `json:"document_id"`
	ChunkID    string            `json:"chunk_id"`
	Text       string            `json:"text"`
	Source     string            `json:"source"`
	PageStart  int               `json:"page_start,omitempty"`
	PageEnd    int               `json:"page_end,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// RetrievedChunk is a single similarity-search hit. It is ephemeral:
// its lifetime is one search call, and its Text may already be redacted.
type RetrievedChunk struct {
	// Score is the cosine similarity against the query vector.
	Score float64

	// ChunkID identifies the matched chunk.
	ChunkID string

	// Text is the chunk content, possibly redacted.
	Text string

	// Source is the originating document filename.
	Source string

	// Metadata is the full stored record for the chunk.
	Metadata ChunkMetadata
}
