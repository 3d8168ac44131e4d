package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/core/ports/driven"
	"github.com/tessella-labs/policyq/internal/core/ports/driving"
	"github.com/tessella-labs/policyq/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// embedBatchSize mirrors the batch size used by the embedding cache.
// It only drives the embed_batches figure reported in the ledger.
const embedBatchSize = 64

// IngestService turns raw document bytes into indexed, searchable chunks.
type IngestService struct {
	normaliser       driven.Normaliser
	pipeline         driven.PostProcessorPipeline
	embeddingService driven.EmbeddingService
	vectorStore      driven.VectorStore
	docStore         driven.DocumentStore
	ledger           driven.Ledger
}

// NewIngestService creates a new ingest service. The docStore and
// ledger parameters are optional (can be nil).
func NewIngestService(
	normaliser driven.Normaliser,
	pipeline driven.PostProcessorPipeline,
	embeddingService driven.EmbeddingService,
	vectorStore driven.VectorStore,
	docStore driven.DocumentStore,
	ledger driven.Ledger,
) *IngestService {
	return &IngestService{
		normaliser:       normaliser,
		pipeline:         pipeline,
		embeddingService: embeddingService,
		vectorStore:      vectorStore,
		docStore:         docStore,
		ledger:           ledger,
	}
}

// Ingest extracts text from the document bytes, chunks it, embeds the
// chunks and appends them to the vector store. The filename doubles as
// the document identifier, so re-ingesting a file appends new vectors
// while overwriting the stored document record.
func (s *IngestService) Ingest(ctx context.Context, content []byte, filename string) (*domain.IngestResult, error) {
	logger.Section("Ingest")
	logger.Debug("File: %s (%d bytes)", filename, len(content))

	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, fmt.Errorf("filename is required: %w", domain.ErrInvalidInput)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("empty file %s: %w", filename, domain.ErrInvalidInput)
	}

	started := time.Now()

	result, err := s.normaliser.Normalise(ctx, content, filename)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.Text) == "" {
		return nil, fmt.Errorf("%s: %w", filename, domain.ErrNoExtractableText)
	}
	logger.Debug("Extracted %d chars across %d pages", len(result.Text), max(1, len(result.PageOffsets)))

	doc := &domain.Document{
		ID:          filename,
		Source:      filename,
		Content:     result.Text,
		PageOffsets: result.PageOffsets,
	}

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("process document: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, domain.ErrNoExtractableText)
	}
	doc.ChunkCount = len(chunks)
	logger.Debug("Produced %d chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embeddingService.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
	}

	metas := make([]domain.ChunkMetadata, len(chunks))
	for i, chunk := range chunks {
		metas[i] = domain.ChunkMetadata{
			DocumentID: filename,
			ChunkID:    chunk.ID,
			Text:       chunk.Text,
			Source:     filename,
			PageStart:  chunk.PageStart,
			PageEnd:    chunk.PageEnd,
			Fields:     chunk.Fields,
		}
	}

	if err := s.vectorStore.Add(ctx, vectors, metas); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}

	if s.docStore != nil {
		if err := s.docStore.SaveDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("save document: %w", err)
		}
		if err := s.docStore.SaveChunks(ctx, chunks); err != nil {
			return nil, fmt.Errorf("save chunks: %w", err)
		}
	}

	elapsed := time.Since(started)
	batches := embedBatches(len(chunks))

	if s.ledger != nil {
		event := domain.NewIngestEvent(filename, len(chunks), batches, elapsed,
			domain.Marker{Type: "note", Text: "POC ingest"})
		if err := s.ledger.AppendIngest(event); err != nil {
			logger.Warn("Ledger append failed: %v", err)
		}
	}

	logger.Info("Ingested %s: %d chunks in %s", filename, len(chunks), elapsed.Round(time.Millisecond))
	return &domain.IngestResult{
		DocumentID:   filename,
		Chunks:       len(chunks),
		Vectors:      len(vectors),
		EmbedBatches: batches,
		Elapsed:      elapsed,
	}, nil
}

// embedBatches reports how many provider batches a chunk count fills.
func embedBatches(chunks int) int {
	if chunks <= 0 {
		return 1
	}
	batches := chunks / embedBatchSize
	if chunks%embedBatchSize != 0 {
		batches++
	}
	return max(1, batches)
}
