package driving

import "context"

// LedgerSummary is a quick inspection view over the audit ledger.
type LedgerSummary struct {
	IngestEvents  int           `json:"ingest_events"`
	Files         []string      `json:"files"`
	QueryEvents   int           `json:"query_events"`
	SampleQueries []QuerySample `json:"sample_queries"`
}

// QuerySample is one recent query taken from the ledger.
type QuerySample struct {
	Query     string `json:"query"`
	Timestamp string `json:"ts"`
	TopK      int    `json:"top_k"`
	Hits      int    `json:"hits"`
}

// HistoryService reads and summarises the audit ledger.
type HistoryService interface {
	// Summarize reads the ledger and aggregates event counts, the
	// sorted set of ingested files and up to ten sample queries.
	Summarize(ctx context.Context) (*LedgerSummary, error)

	// Events returns the raw ledger lines, oldest first.
	Events(ctx context.Context) ([]string, error)
}
