// Package flat provides a file-backed vector store with exact
// inner-product search. Vectors are L2-normalised on both insert and
// query, so the inner product is cosine similarity.
package flat

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/core/ports/driven"
	"github.com/tessella-labs/policyq/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default file names inside the data directory.
const (
	DefaultIndexFile = "index.bin"
	DefaultMetaFile  = "meta.json"
)

// metaFile is the persisted metadata envelope. Dimension is stored so
// the raw vector file can be validated on load.
type metaFile struct {
	Dimension int                    `json:"dimension"`
	Metadata  []domain.ChunkMetadata `json:"metadata"`
}

// Store keeps vectors and chunk metadata as parallel slices. Every
// mutation rewrites both files so the on-disk state always matches
// memory.
type Store struct {
	indexPath string
	metaPath  string

	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	metadata  []domain.ChunkMetadata
}

// New creates a vector store persisted under dir. Existing files are
// loaded; metadata without a matching index file is discarded.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("flat: create directory: %w", err)
	}

	s := &Store{
		indexPath: filepath.Join(dir, DefaultIndexFile),
		metaPath:  filepath.Join(dir, DefaultMetaFile),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Add inserts vectors with their metadata. The first insert binds the
// store dimension; later inserts must match it. Input vectors are not
// modified.
func (s *Store) Add(ctx context.Context, embeddings [][]float32, metadatas []domain.ChunkMetadata) error {
	if len(embeddings) == 0 {
		return nil
	}
	if len(embeddings) != len(metadatas) {
		return fmt.Errorf("flat: %d vectors for %d metadata entries: %w", len(embeddings), len(metadatas), domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := len(embeddings[0])
	if dim == 0 {
		return fmt.Errorf("flat: empty vector: %w", domain.ErrInvalidInput)
	}
	if s.dimension == 0 {
		s.dimension = dim
	}

	normalised := make([][]float32, len(embeddings))
	for i, vec := range embeddings {
		if len(vec) != s.dimension {
			return fmt.Errorf("flat: vector %d has dimension %d, store has %d: %w", i, len(vec), s.dimension, domain.ErrDimensionMismatch)
		}
		normalised[i] = normalise(vec)
	}

	s.vectors = append(s.vectors, normalised...)
	s.metadata = append(s.metadata, metadatas...)

	return s.persist()
}

// Search returns the k nearest chunks to the query by cosine
// similarity. An empty store returns no hits.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("flat: query has dimension %d, store has %d: %w", len(query), s.dimension, domain.ErrDimensionMismatch)
	}

	q := normalise(query)
	hits := make([]driven.VectorHit, 0, len(s.vectors))
	for i, vec := range s.vectors {
		hits = append(hits, driven.VectorHit{
			Score:    dot(q, vec),
			Metadata: s.metadata[i],
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// All returns the metadata of every stored chunk in insertion order.
func (s *Store) All(ctx context.Context) ([]domain.ChunkMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ChunkMetadata, len(s.metadata))
	copy(out, s.metadata)
	return out, nil
}

// Size returns the number of stored vectors.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.metadata)
}

// Close persists the current state.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

// load reads both files. Inconsistent state resets the store rather
// than serving mismatched vectors and metadata.
func (s *Store) load() error {
	meta, metaErr := os.ReadFile(s.metaPath)
	index, indexErr := os.ReadFile(s.indexPath)

	if metaErr != nil {
		return nil
	}
	if indexErr != nil {
		// Metadata without vectors cannot be searched.
		logger.Warn("Vector index missing at %s; discarding metadata", s.indexPath)
		return nil
	}

	var mf metaFile
	if err := json.Unmarshal(meta, &mf); err != nil {
		logger.Warn("Discarding unreadable vector metadata at %s: %v", s.metaPath, err)
		return nil
	}
	if mf.Dimension <= 0 {
		return nil
	}

	vectors, err := decodeVectors(index, mf.Dimension)
	if err != nil || len(vectors) != len(mf.Metadata) {
		logger.Warn("Vector index at %s does not match metadata; discarding both", s.indexPath)
		return nil
	}

	s.dimension = mf.Dimension
	s.vectors = vectors
	s.metadata = mf.Metadata
	return nil
}

func (s *Store) persist() error {
	meta, err := json.Marshal(metaFile{Dimension: s.dimension, Metadata: s.metadata})
	if err != nil {
		return fmt.Errorf("flat: encode metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath, meta, 0o644); err != nil {
		return fmt.Errorf("flat: write metadata: %w", err)
	}
	if err := os.WriteFile(s.indexPath, encodeVectors(s.vectors), 0o644); err != nil {
		return fmt.Errorf("flat: write index: %w", err)
	}
	return nil
}

// encodeVectors packs vectors as little-endian float32.
func encodeVectors(vectors [][]float32) []byte {
	if len(vectors) == 0 {
		return []byte{}
	}
	buf := make([]byte, 0, len(vectors)*len(vectors[0])*4)
	for _, vec := range vectors {
		for _, v := range vec {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	return buf
}

func decodeVectors(data []byte, dimension int) ([][]float32, error) {
	stride := dimension * 4
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("flat: index size %d not a multiple of vector size %d", len(data), stride)
	}
	count := len(data) / stride
	vectors := make([][]float32, count)
	for i := 0; i < count; i++ {
		vec := make([]float32, dimension)
		for j := 0; j < dimension; j++ {
			bits := binary.LittleEndian.Uint32(data[i*stride+j*4:])
			vec[j] = math.Float32frombits(bits)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// normalise returns an L2-normalised copy of the vector. Zero vectors
// are returned unchanged.
func normalise(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	out := make([]float32, len(vec))
	if sum == 0 {
		copy(out, vec)
		return out
	}
	norm := math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
