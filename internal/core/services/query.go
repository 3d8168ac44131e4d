package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/core/ports/driven"
	"github.com/tessella-labs/policyq/internal/core/ports/driving"
	"github.com/tessella-labs/policyq/internal/logger"
	"github.com/tessella-labs/policyq/internal/postprocessors/fields"
	"github.com/tessella-labs/policyq/internal/redact"
	"github.com/tessella-labs/policyq/internal/rewrite"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// DefaultTopK is the number of chunks retrieved when the caller does
// not specify one.
const DefaultTopK = 3

const (
	snippetChars = 500
	previewChars = 300
)

// fieldTriggers maps query phrases to structured field keys. Longer
// phrases are listed first so "estimated total premium" wins over
// "total premium".
var fieldTriggers = []struct {
	phrase string
	key    string
}{
	{"estimated total premium", fields.KeyEstimatedTotalPremium},
	{"premium at inception", fields.KeyPremiumAtInception},
	{"policy number", fields.KeyPolicyNumber},
	{"total premium", fields.KeyEstimatedTotalPremium},
}

// QueryService answers questions grounded in the indexed documents.
type QueryService struct {
	embeddingService driven.EmbeddingService
	vectorStore      driven.VectorStore
	llmService       driven.LLMService
	ledger           driven.Ledger
	topK             int
	redactDefault    bool
}

// NewQueryService creates a new query service. The llmService and
// ledger parameters are optional (can be nil); without a generation
// service only structured-field shortcut answers are possible.
func NewQueryService(
	embeddingService driven.EmbeddingService,
	vectorStore driven.VectorStore,
	llmService driven.LLMService,
	ledger driven.Ledger,
) *QueryService {
	return &QueryService{
		embeddingService: embeddingService,
		vectorStore:      vectorStore,
		llmService:       llmService,
		ledger:           ledger,
		topK:             DefaultTopK,
	}
}

// SetTopK sets the default retrieval depth.
func (s *QueryService) SetTopK(k int) {
	if k > 0 {
		s.topK = k
	}
}

// SetRedactDefault sets the process-wide redaction default. A per-query
// override in QueryOptions always wins.
func (s *QueryService) SetRedactDefault(enabled bool) {
	s.redactDefault = enabled
}

// Ask expands the query, retrieves grounding chunks and answers either
// from a structured field or through the generation service.
func (s *QueryService) Ask(ctx context.Context, query string, opts domain.QueryOptions) (*domain.Answer, error) {
	logger.Section("Query")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query text is required: %w", domain.ErrInvalidInput)
	}

	started := time.Now()

	topK := opts.TopK
	if topK <= 0 {
		topK = s.topK
	}
	redactEnabled := s.redactDefault
	if opts.Redact != nil {
		redactEnabled = *opts.Redact
	}
	logger.Debug("Query: %q (top_k=%d, redact=%t)", query, topK, redactEnabled)

	rewritten := rewrite.Expand(query)
	if rewritten != query {
		logger.Debug("Rewritten: %q", rewritten)
	}

	if s.embeddingService == nil {
		return nil, fmt.Errorf("no embedding service configured: %w", domain.ErrEmbeddingUnavailable)
	}
	vector, err := s.embeddingService.Embed(ctx, rewritten)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vectorStore.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	retrieved := make([]domain.RetrievedChunk, len(hits))
	for i, hit := range hits {
		retrieved[i] = domain.RetrievedChunk{
			Score:    hit.Score,
			ChunkID:  hit.Metadata.ChunkID,
			Text:     redact.Text(hit.Metadata.Text, redactEnabled),
			Source:   hit.Metadata.Source,
			Metadata: hit.Metadata,
		}
	}

	if answer := s.shortcutAnswer(ctx, query, retrieved); answer != nil {
		s.recordQuery(query, retrieved, answer.Text, started,
			domain.Marker{Type: "decision", Text: "Answered from structured field"})
		return answer, nil
	}

	if len(retrieved) == 0 {
		logger.Debug("No grounding context retrieved")
		return &domain.Answer{
			Text:    "I don't know.",
			Sources: []domain.RetrievalHit{},
		}, nil
	}

	if s.llmService == nil {
		return nil, fmt.Errorf("no generation service configured: %w", domain.ErrLLMUnavailable)
	}

	contextBlocks := buildContext(retrieved)
	answerText, err := s.llmService.Answer(ctx, query, contextBlocks)
	if err != nil {
		return nil, err
	}

	answer := &domain.Answer{
		Text:     answerText,
		Snippets: make([]string, len(retrieved)),
		Sources:  make([]domain.RetrievalHit, len(retrieved)),
	}
	for i, chunk := range retrieved {
		answer.Snippets[i] = clip(chunk.Text, snippetChars)
		answer.Sources[i] = domain.RetrievalHit{
			Source:    chunk.Source,
			ChunkID:   chunk.ChunkID,
			Score:     chunk.Score,
			PageStart: chunk.Metadata.PageStart,
			PageEnd:   chunk.Metadata.PageEnd,
		}
	}

	s.recordQuery(query, retrieved, answerText, started,
		domain.Marker{Type: "decision", Text: "Answer grounded in retrieved context"})
	return answer, nil
}

// shortcutAnswer answers directly from an extracted structured field
// when the query names one. Generation is never invoked on this path.
// Returns nil when the query names no known field or no value is
// stored for it.
func (s *QueryService) shortcutAnswer(ctx context.Context, query string, retrieved []domain.RetrievedChunk) *domain.Answer {
	lowered := strings.ToLower(query)

	key := ""
	for _, trigger := range fieldTriggers {
		if strings.Contains(lowered, trigger.phrase) {
			key = trigger.key
			break
		}
	}
	if key == "" {
		return nil
	}

	meta, value, snippet, score := findField(retrieved, key)
	if value == "" {
		// Not among the retrieved chunks; fall back to any stored record.
		all, err := s.vectorStore.All(ctx)
		if err != nil {
			logger.Warn("Field fallback scan failed: %v", err)
			return nil
		}
		for _, candidate := range all {
			if v, ok := candidate.Fields[key]; ok && v != "" {
				meta, value, snippet, score = candidate, v, candidate.Text, 0
				break
			}
		}
	}
	if value == "" {
		return nil
	}

	logger.Debug("Structured field %s answered without generation", key)

	label := strings.ReplaceAll(key, "_", " ")
	text := fmt.Sprintf("The %s is %s.", label, value)
	if meta.PageStart > 0 {
		text = fmt.Sprintf("The %s is %s (%s, %s).",
			label, value, meta.Source, domain.FormatPageLabel(meta.PageStart, meta.PageEnd))
	} else if meta.Source != "" {
		text = fmt.Sprintf("The %s is %s (%s).", label, value, meta.Source)
	}

	return &domain.Answer{
		Text:     text,
		Snippets: []string{clip(snippet, snippetChars)},
		Sources: []domain.RetrievalHit{{
			Source:    meta.Source,
			ChunkID:   meta.ChunkID,
			Score:     score,
			PageStart: meta.PageStart,
			PageEnd:   meta.PageEnd,
		}},
		Shortcut: true,
	}
}

// findField returns the first retrieved chunk carrying the field key.
// The snippet is the chunk's display text, already redacted upstream.
func findField(retrieved []domain.RetrievedChunk, key string) (domain.ChunkMetadata, string, string, float64) {
	for _, chunk := range retrieved {
		if value, ok := chunk.Metadata.Fields[key]; ok && value != "" {
			return chunk.Metadata, value, chunk.Text, chunk.Score
		}
	}
	return domain.ChunkMetadata{}, "", "", 0
}

// buildContext formats retrieved chunks as grounding blocks for the
// generation prompt.
func buildContext(retrieved []domain.RetrievedChunk) []string {
	blocks := make([]string, len(retrieved))
	for i, chunk := range retrieved {
		blocks[i] = fmt.Sprintf("Source: %s | Chunk: %s\nScore: %.4f\n%s",
			chunk.Source, chunk.ChunkID, chunk.Score, chunk.Text)
	}
	return blocks
}

// recordQuery appends a query event to the ledger. Ledger failures are
// logged, never surfaced: the answer has already been produced.
func (s *QueryService) recordQuery(query string, retrieved []domain.RetrievedChunk, answer string, started time.Time, markers ...domain.Marker) {
	if s.ledger == nil {
		return
	}

	rhits := make([]domain.RetrievalHit, len(retrieved))
	for i, chunk := range retrieved {
		sum := sha1.Sum([]byte(chunk.Text))
		rhits[i] = domain.RetrievalHit{
			Source:  chunk.Source,
			ChunkID: hex.EncodeToString(sum[:])[:12],
			Score:   chunk.Score,
			Preview: clip(chunk.Text, previewChars),
		}
	}

	event := domain.QueryEvent{
		Query:       query,
		TopK:        len(retrieved),
		Hits:        rhits,
		LatencyMS:   time.Since(started).Milliseconds(),
		AnswerChars: len(answer),
		Markers:     markers,
	}
	if s.llmService != nil {
		event.Model = s.llmService.ModelName()
		event.MaxTokens = s.llmService.MaxTokens()
		event.Temperature = s.llmService.Temperature()
	}

	if err := s.ledger.AppendQuery(domain.NewQueryEvent(event)); err != nil {
		logger.Warn("Ledger append failed: %v", err)
	}
}

// clip truncates text to at most n runes.
func clip(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
