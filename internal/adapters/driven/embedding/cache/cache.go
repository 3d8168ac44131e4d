// Package cache provides a caching decorator for embedding services.
// Embeddings are keyed by a SHA-256 digest of the text, deduplicated
// within each request and persisted to disk so repeat ingests of the
// same content never hit the provider.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/core/ports/driven"
	"github.com/tessella-labs/policyq/internal/costguard"
	"github.com/tessella-labs/policyq/internal/logger"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// DefaultBatchSize is the number of texts sent per provider request.
const DefaultBatchSize = 64

// DefaultEmbedMaxTokens is the per-text token ceiling applied before a
// provider call. Zero disables the check.
const DefaultEmbedMaxTokens = 6000

// Config holds configuration for the caching embedding service.
type Config struct {
	// Path is the cache file location (required).
	Path string

	// BatchSize is the number of texts per provider request
	// (default: 64).
	BatchSize int

	// EmbedMaxTokens is the per-text token ceiling (default: 6000,
	// negative disables).
	EmbedMaxTokens int
}

// Service wraps an embedding service with a persistent cache.
type Service struct {
	inner     driven.EmbeddingService
	guard     *costguard.Guard
	path      string
	batchSize int
	maxTokens int

	mu    sync.Mutex
	cache map[string][]float32
}

// New creates a caching embedding service around inner. The cache file
// is loaded if present; a missing or corrupt file starts empty.
func New(inner driven.EmbeddingService, guard *costguard.Guard, cfg Config) (*Service, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache: path is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.EmbedMaxTokens == 0 {
		cfg.EmbedMaxTokens = DefaultEmbedMaxTokens
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}

	s := &Service{
		inner:     inner,
		guard:     guard,
		path:      cfg.Path,
		batchSize: cfg.BatchSize,
		maxTokens: cfg.EmbedMaxTokens,
		cache:     loadCache(cfg.Path),
	}

	return s, nil
}

// Embed generates or retrieves a cached embedding for the given text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Duplicate texts
// are embedded once, cached texts are served from disk, and only the
// remainder is sent to the provider in batches. The cache is persisted
// after any provider call.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Dedupe while preserving the requested order.
	order := make([]string, len(texts))
	deduped := make(map[string]string)
	for i, text := range texts {
		key := hashText(text)
		order[i] = key
		if _, ok := deduped[key]; !ok {
			deduped[key] = text
		}
	}

	s.mu.Lock()
	var missing []string
	for key := range deduped {
		if _, ok := s.cache[key]; !ok {
			missing = append(missing, key)
		}
	}
	s.mu.Unlock()

	if len(missing) > 0 {
		for start := 0; start < len(missing); start += s.batchSize {
			end := min(start+s.batchSize, len(missing))
			batchKeys := missing[start:end]
			batchTexts := make([]string, len(batchKeys))
			for i, key := range batchKeys {
				batchTexts[i] = deduped[key]
			}

			vectors, err := s.requestEmbeddings(ctx, batchTexts)
			if err != nil {
				return nil, err
			}
			if len(vectors) != len(batchKeys) {
				return nil, fmt.Errorf("cache: provider returned %d vectors for %d texts", len(vectors), len(batchKeys))
			}

			s.mu.Lock()
			for i, key := range batchKeys {
				s.cache[key] = vectors[i]
			}
			s.mu.Unlock()
		}

		if err := s.persist(); err != nil {
			logger.Warn("Failed to persist embedding cache: %v", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([][]float32, len(order))
	for i, key := range order {
		result[i] = s.cache[key]
	}
	return result, nil
}

// requestEmbeddings sends one batch to the provider under the cost
// guard. Each text is checked against the embedding token ceiling
// individually; the guard's own budget is left to generation calls.
func (s *Service) requestEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if s.maxTokens > 0 {
		for _, text := range texts {
			if costguard.EstimateTokens(text) > s.maxTokens {
				return nil, fmt.Errorf("cache: text of ~%d estimated tokens: %w",
					costguard.EstimateTokens(text), domain.ErrBudgetExceeded)
			}
		}
	}
	if s.guard != nil {
		if err := s.guard.BeforeRequest(ctx); err != nil {
			return nil, err
		}
	}

	vectors, err := s.inner.EmbedBatch(ctx, texts)
	if err != nil {
		if s.guard != nil {
			s.guard.AfterFailure(err)
		}
		return nil, err
	}

	if s.guard != nil {
		tokens := 0
		for _, text := range texts {
			tokens += costguard.EstimateTokens(text)
		}
		s.guard.AfterSuccess(tokens)
	}
	return vectors, nil
}

// ModelName returns the wrapped service's model name.
func (s *Service) ModelName() string {
	return s.inner.ModelName()
}

// Close persists the cache and closes the wrapped service.
func (s *Service) Close() error {
	if err := s.persist(); err != nil {
		logger.Warn("Failed to persist embedding cache on close: %v", err)
	}
	return s.inner.Close()
}

// Size returns the number of cached embeddings.
func (s *Service) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

func (s *Service) persist() error {
	s.mu.Lock()
	data, err := json.Marshal(s.cache)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

func loadCache(path string) map[string][]float32 {
	data, err := os.ReadFile(path)
	if err != nil {
		return make(map[string][]float32)
	}
	var cache map[string][]float32
	if err := json.Unmarshal(data, &cache); err != nil || cache == nil {
		logger.Warn("Discarding unreadable embedding cache at %s", path)
		return make(map[string][]float32)
	}
	return cache
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
