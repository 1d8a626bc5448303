package vectorstore

import (
	"errors"
	"sort"

	"newsrag/internal/domain"
	"newsrag/internal/embedding"
)

var (
	ErrInvalidDimension  = errors.New("invalid dimension")
	ErrLengthMismatch    = errors.New("documents and vectors length mismatch")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrNotInitialized    = errors.New("collection not initialized")
	// ErrNoPersistedIndex is returned by Load when there is nothing to load.
	ErrNoPersistedIndex = errors.New("no persisted index")
)

// Storage persists document vectors and supports similarity search.
// Init starts a fresh collection, discarding whatever the backend held before.
// Dimension is the vector size of the current collection, 0 when there is none.
type Storage interface {
	Init(dimension int) error
	Dimension() int
	Upsert(docs []domain.IndexedDocument, vectors [][]float64) error
	Search(vector []float64, topK int) ([]domain.SearchResult, error)
	Load() error
	Clear() error
	Close() error
}

// DefaultTopK is used when a caller passes a non-positive topK.
const DefaultTopK = 5

// CheckBatch validates an Upsert batch against the collection dimension.
func CheckBatch(docs []domain.IndexedDocument, vectors [][]float64, dimension int) error {
	if len(docs) != len(vectors) {
		return ErrLengthMismatch
	}
	for _, v := range vectors {
		if len(v) != dimension {
			return ErrDimensionMismatch
		}
	}
	return nil
}

// Rank scores every vector against query by cosine similarity and returns the
// topK best documents, highest first. Ties keep insertion order.
func Rank(docs []domain.IndexedDocument, vectors [][]float64, query []float64, topK int) []domain.SearchResult {
	if topK <= 0 {
		topK = DefaultTopK
	}
	results := make([]domain.SearchResult, len(docs))
	for i := range docs {
		results[i] = domain.SearchResult{Document: docs[i], Score: embedding.Cosine(vectors[i], query)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results
}
