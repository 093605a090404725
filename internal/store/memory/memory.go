package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"docchat/internal/domain"
)

// Store keeps chunks and their embeddings in two index-aligned slices and
// answers similarity queries by exact brute-force cosine scan. Every
// successful append is snapshotted to disk; see snapshot.go.
type Store struct {
	mu        sync.RWMutex
	dimension int
	chunks    []domain.Chunk
	vectors   [][]float64
	path      string
	log       *zap.Logger
}

// NewStore creates a store backed by the snapshot file at path. If the file
// exists and is readable its contents are restored; a missing or corrupt
// snapshot starts the store empty and is only logged. An empty path disables
// persistence entirely.
func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{path: path, log: log}
	s.restore()
	return s
}

func (s *Store) AddChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dim := s.dimension
	if dim == 0 {
		dim = len(vectors[0])
	}
	for _, v := range vectors {
		if len(v) != dim {
			return errors.New("vector dimension mismatch")
		}
	}
	s.dimension = dim
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	// A failed snapshot must not invalidate the in-memory state; the batch
	// simply won't survive a restart.
	if err := s.persistLocked(); err != nil {
		s.log.Error("snapshot write failed, in-memory store still valid", zap.Error(err))
	}
	return nil
}

// Search scores every stored vector against the query vector by cosine
// similarity and returns the topK best, descending. Ties keep store order.
func (s *Store) Search(ctx context.Context, vector []float64, topK int) ([]domain.RetrievedDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 || len(s.chunks) == 0 {
		return nil, nil
	}
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		scores[i] = cosine(s.vectors[i], vector)
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.RetrievedDoc, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.RetrievedDoc{Chunk: s.chunks[j], Similarity: scores[j]})
	}
	return results, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	s.vectors = nil
	s.dimension = 0
	if err := s.persistLocked(); err != nil {
		s.log.Error("snapshot write failed after clear", zap.Error(err))
	}
	return nil
}

// Dimension returns the embedding dimension the store is locked to, or 0
// while the store is empty.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
