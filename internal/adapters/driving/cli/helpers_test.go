package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/core/ports/driving"
)

type stubIngestService struct {
	result   *domain.IngestResult
	err      error
	received []string
}

func (s *stubIngestService) Ingest(ctx context.Context, content []byte, filename string) (*domain.IngestResult, error) {
	s.received = append(s.received, filename)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubQueryService struct {
	answer   *domain.Answer
	err      error
	lastQ    string
	lastOpts domain.QueryOptions
}

func (s *stubQueryService) Ask(ctx context.Context, query string, opts domain.QueryOptions) (*domain.Answer, error) {
	s.lastQ = query
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

type stubHistoryService struct {
	summary *driving.LedgerSummary
	lines   []string
}

func (s *stubHistoryService) Summarize(ctx context.Context) (*driving.LedgerSummary, error) {
	return s.summary, nil
}

func (s *stubHistoryService) Events(ctx context.Context) ([]string, error) {
	return s.lines, nil
}

type stubDocumentStore struct {
	docs   []domain.Document
	chunks []domain.Chunk
}

func (s *stubDocumentStore) SaveDocument(ctx context.Context, doc *domain.Document) error { return nil }
func (s *stubDocumentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error  { return nil }

func (s *stubDocumentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	for i := range s.docs {
		if s.docs[i].ID == id {
			return &s.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubDocumentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return s.chunks, nil
}

func (s *stubDocumentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.docs, nil
}

func (s *stubDocumentStore) Close() error { return nil }

type stubConfigStore struct {
	values map[string]any
}

func (s *stubConfigStore) Get(key string) (any, bool) {
	value, ok := s.values[key]
	return value, ok
}

func (s *stubConfigStore) GetString(key string) string {
	if v, ok := s.values[key].(string); ok {
		return v
	}
	return ""
}

func (s *stubConfigStore) GetInt(key string) int {
	if v, ok := s.values[key].(int); ok {
		return v
	}
	return 0
}

func (s *stubConfigStore) GetFloat(key string) float64 {
	if v, ok := s.values[key].(float64); ok {
		return v
	}
	return 0
}

func (s *stubConfigStore) GetBool(key string) bool {
	if v, ok := s.values[key].(bool); ok {
		return v
	}
	return false
}

func (s *stubConfigStore) Set(key string, value any) error {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[key] = value
	return nil
}

func (s *stubConfigStore) Load() error { return nil }
func (s *stubConfigStore) Path() string {
	return "/tmp/policyq/config.toml"
}

// setupTestServices installs stub services and returns a cleanup that
// restores the previous wiring.
func setupTestServices() func() {
	prevIngest := ingestService
	prevQuery := queryService
	prevHistory := historyService
	prevDocs := documentStore
	prevConfig := configStore
	prevSize := indexSize

	ingestService = &stubIngestService{result: &domain.IngestResult{
		DocumentID:   "policy.pdf",
		Chunks:       3,
		Vectors:      3,
		EmbedBatches: 1,
		Elapsed:      1200 * time.Millisecond,
	}}
	queryService = &stubQueryService{answer: &domain.Answer{
		Text: "Flood is excluded.",
		Sources: []domain.RetrievalHit{
			{Source: "policy.pdf", ChunkID: "chunk-1", Score: 0.98, PageStart: 2, PageEnd: 2},
		},
		Snippets: []string{"All perils are covered except flood."},
	}}
	historyService = &stubHistoryService{
		summary: &driving.LedgerSummary{
			IngestEvents:  1,
			Files:         []string{"policy.pdf"},
			QueryEvents:   1,
			SampleQueries: []driving.QuerySample{{Query: "what is excluded?", TopK: 3, Hits: 1}},
		},
		lines: []string{`{"kind":"ingest","filename":"policy.pdf"}`},
	}
	documentStore = &stubDocumentStore{
		docs: []domain.Document{
			{ID: "policy.pdf", Source: "policy.pdf", ChunkCount: 3, PageOffsets: []int{0, 100}},
		},
		chunks: []domain.Chunk{
			{ID: "chunk-1", DocumentID: "policy.pdf", Text: "All perils are covered.", Start: 0, End: 23, PageStart: 1, PageEnd: 1},
		},
	}
	configStore = &stubConfigStore{values: map[string]any{"query.top_k": 3}}
	indexSize = func() int { return 3 }

	return func() {
		ingestService = prevIngest
		queryService = prevQuery
		historyService = prevHistory
		documentStore = prevDocs
		configStore = prevConfig
		indexSize = prevSize
	}
}

// clearServices nils every service so not-configured paths can be hit.
func clearServices() func() {
	restore := setupTestServices()
	ingestService = nil
	queryService = nil
	historyService = nil
	documentStore = nil
	configStore = nil
	indexSize = nil
	return restore
}

// executeCommand runs the root command with args and captures output.
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
