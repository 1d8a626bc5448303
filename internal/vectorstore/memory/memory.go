package memory

import (
	"sync"

	"newsrag/internal/domain"
	"newsrag/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// Nothing survives the process, so Load always fails.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	docs      []domain.IndexedDocument
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return vectorstore.ErrInvalidDimension
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.docs = nil
	return nil
}

func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func (s *Storage) Upsert(docs []domain.IndexedDocument, vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := vectorstore.CheckBatch(docs, vectors, s.dimension); err != nil {
		return err
	}
	s.docs = append(s.docs, docs...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vectorstore.Rank(s.docs, s.vectors, vector, topK), nil
}

func (s *Storage) Load() error { return vectorstore.ErrNoPersistedIndex }

func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.docs = nil
	return nil
}

func (s *Storage) Close() error { return nil }

// Snapshot returns copies of the current collection.
func (s *Storage) Snapshot() (int, []domain.IndexedDocument, [][]float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := append([]domain.IndexedDocument(nil), s.docs...)
	vectors := append([][]float64(nil), s.vectors...)
	return s.dimension, docs, vectors
}

// Restore replaces the collection wholesale.
func (s *Storage) Restore(dimension int, docs []domain.IndexedDocument, vectors [][]float64) error {
	if dimension <= 0 {
		return vectorstore.ErrInvalidDimension
	}
	if err := vectorstore.CheckBatch(docs, vectors, dimension); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.docs = docs
	s.vectors = vectors
	return nil
}
