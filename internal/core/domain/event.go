package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Ledger event kinds.
const (
	EventKindIngest = "ingest"
	EventKindQuery  = "query"
)

// Marker attaches free-form context to a ledger event.
type Marker struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// RetrievalHit records one vector-store hit inside a query event.
type RetrievalHit struct {
	Source    string  `json:"source"`
	ChunkID   string  `json:"chunk_id"`
	Score     float64 `json:"score"`
	Preview   string  `json:"preview"`
	PageStart int     `json:"page_start,omitempty"`
	PageEnd   int     `json:"page_end,omitempty"`
}

// IngestEvent is recorded after a successful ingest.
type IngestEvent struct {
	Kind         string   `json:"kind"`
	Timestamp    string   `json:"ts"`
	Run          string   `json:"run"`
	Filename     string   `json:"filename"`
	Chunks       int      `json:"chunks"`
	EmbedBatches int      `json:"embed_batches"`
	DurationMS   int64    `json:"duration_ms"`
	Markers      []Marker `json:"markers"`
}

// QueryEvent is recorded after a successful query.
type QueryEvent struct {
	Kind            string         `json:"kind"`
	Timestamp       string         `json:"ts"`
	Run             string         `json:"run"`
	Query           string         `json:"query"`
	TopK            int            `json:"top_k"`
	Hits            []RetrievalHit `json:"hits"`
	Model           string         `json:"model"`
	MaxTokens       int            `json:"max_tokens"`
	Temperature     float64        `json:"temperature"`
	LatencyMS       int64          `json:"latency_ms"`
	AnswerChars     int            `json:"answer_chars"`
	EstInputTokens  int            `json:"est_input_tokens,omitempty"`
	EstOutputTokens int            `json:"est_output_tokens,omitempty"`
	EstUSD          float64        `json:"est_usd,omitempty"`
	Markers         []Marker       `json:"markers"`
}

// NewIngestEvent stamps an ingest event with kind, timestamp and run id.
func NewIngestEvent(filename string, chunks, embedBatches int, duration time.Duration, markers ...Marker) IngestEvent {
	if markers == nil {
		markers = []Marker{}
	}
	return IngestEvent{
		Kind:         EventKindIngest,
		Timestamp:    time.Now().Format(time.RFC3339),
		Run:          NewRunID(),
		Filename:     filename,
		Chunks:       chunks,
		EmbedBatches: embedBatches,
		DurationMS:   duration.Milliseconds(),
		Markers:      markers,
	}
}

// NewQueryEvent stamps a query event with kind, timestamp and run id.
// The caller fills the remaining fields before stamping.
func NewQueryEvent(event QueryEvent) QueryEvent {
	event.Kind = EventKindQuery
	event.Timestamp = time.Now().Format(time.RFC3339)
	event.Run = NewRunID()
	if event.Hits == nil {
		event.Hits = []RetrievalHit{}
	}
	if event.Markers == nil {
		event.Markers = []Marker{}
	}
	return event
}

// NewRunID returns a new opaque run identifier.
func NewRunID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand is documented never to fail on supported platforms
		return "0"
	}
	return hex.EncodeToString(buf[:])
}
