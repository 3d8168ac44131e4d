package services

import (
	"context"
	"sort"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/core/ports/driven"
	"github.com/tessella-labs/policyq/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// maxSampleQueries bounds the sample_queries section of a summary.
const maxSampleQueries = 10

// HistoryService reads and summarises the audit ledger.
type HistoryService struct {
	reader driven.LedgerReader
}

// NewHistoryService creates a new history service.
func NewHistoryService(reader driven.LedgerReader) *HistoryService {
	return &HistoryService{reader: reader}
}

// Summarize aggregates the ledger into event counts, the sorted set of
// ingested files and the first ten sample queries.
func (s *HistoryService) Summarize(ctx context.Context) (*driving.LedgerSummary, error) {
	entries, err := s.reader.Entries()
	if err != nil {
		return nil, err
	}

	summary := &driving.LedgerSummary{
		Files:         []string{},
		SampleQueries: []driving.QuerySample{},
	}
	fileSet := make(map[string]struct{})

	for _, entry := range entries {
		switch entry["kind"] {
		case domain.EventKindIngest:
			summary.IngestEvents++
			if filename, ok := entry["filename"].(string); ok {
				fileSet[filename] = struct{}{}
			}
		case domain.EventKindQuery:
			summary.QueryEvents++
			if len(summary.SampleQueries) < maxSampleQueries {
				summary.SampleQueries = append(summary.SampleQueries, querySample(entry))
			}
		}
	}

	for filename := range fileSet {
		summary.Files = append(summary.Files, filename)
	}
	sort.Strings(summary.Files)

	return summary, nil
}

// Events returns the raw ledger lines, oldest first.
func (s *HistoryService) Events(ctx context.Context) ([]string, error) {
	return s.reader.Lines()
}

func querySample(entry map[string]any) driving.QuerySample {
	sample := driving.QuerySample{}
	if query, ok := entry["query"].(string); ok {
		sample.Query = query
	}
	if ts, ok := entry["ts"].(string); ok {
		sample.Timestamp = ts
	}
	if topK, ok := entry["top_k"].(float64); ok {
		sample.TopK = int(topK)
	}
	if hits, ok := entry["hits"].([]any); ok {
		sample.Hits = len(hits)
	}
	return sample
}
