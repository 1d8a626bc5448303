// Package index turns articles into embedded documents and answers
// similarity queries against whichever vector store backs it.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"newsrag/internal/domain"
	"newsrag/internal/vectorstore"
)

var (
	// ErrNotInitialized is returned by Query before a successful Build or Load.
	ErrNotInitialized = errors.New("index not initialized: build or load it first")
	// ErrDimensionMismatch means the index was built with a different embedder.
	ErrDimensionMismatch = errors.New("query vector does not match the index dimension")
)

// DefaultK is the number of neighbours Query returns when k is not positive.
const DefaultK = 5

type Index struct {
	embedder domain.Embedder
	store    vectorstore.Storage

	mu    sync.RWMutex
	ready bool
	empty bool
	log   logrus.FieldLogger
}

func New(embedder domain.Embedder, store vectorstore.Storage, log logrus.FieldLogger) *Index {
	return &Index{
		embedder: embedder,
		store:    store,
		log:      log.WithFields(logrus.Fields{"component": "index", "embedder": embedder.Name()}),
	}
}

// Build replaces the working set with articles. Articles sharing a URL are
// collapsed to the first one; articles without a URL are all kept.
func (ix *Index) Build(ctx context.Context, articles []domain.Article) error {
	docs := dedupe(articles)

	vectors := make([][]float64, 0, len(docs))
	for _, doc := range docs {
		v, err := ix.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("embed %q: %w", doc.ID, err)
		}
		vectors = append(vectors, v)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ready = false

	if len(docs) == 0 {
		if err := ix.store.Clear(); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
		ix.ready, ix.empty = true, true
		ix.log.Info("index built with no documents")
		return nil
	}

	if err := ix.store.Init(len(vectors[0])); err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	if err := ix.store.Upsert(docs, vectors); err != nil {
		return fmt.Errorf("upsert documents: %w", err)
	}
	ix.ready, ix.empty = true, false
	ix.log.WithField("documents", len(docs)).Info("index built")
	return nil
}

// Load restores a previously persisted index. Failures, including an index
// whose dimension differs from the embedder's, are logged, never returned.
func (ix *Index) Load(_ context.Context) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.store.Load(); err != nil {
		if errors.Is(err, vectorstore.ErrNoPersistedIndex) {
			ix.log.Info("no persisted index found")
		} else {
			ix.log.WithError(err).Warn("failed to load persisted index")
		}
		return false
	}
	want, got := ix.embedder.Dimension(), ix.store.Dimension()
	if want > 0 && got != want {
		ix.log.WithFields(logrus.Fields{"index_dimension": got, "embedder_dimension": want}).
			Warn("persisted index was built with a different embedder, ignoring it")
		return false
	}
	ix.ready, ix.empty = true, false
	return true
}

// Ready reports whether Query can be served.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.ready
}

// Query returns up to k articles most similar to text, best first.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]domain.Article, error) {
	ix.mu.RLock()
	ready, empty := ix.ready, ix.empty
	ix.mu.RUnlock()
	if !ready {
		return nil, ErrNotInitialized
	}
	if empty {
		return nil, nil
	}
	if k <= 0 {
		k = DefaultK
	}

	v, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if dim := ix.store.Dimension(); dim > 0 && len(v) != dim {
		return nil, fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(v), dim)
	}
	results, err := ix.store.Search(v, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	articles := make([]domain.Article, 0, len(results))
	for _, r := range results {
		articles = append(articles, domain.ArticleFromDocument(r.Document))
	}
	return articles, nil
}

// Close releases the backing store.
func (ix *Index) Close() error { return ix.store.Close() }

func dedupe(articles []domain.Article) []domain.IndexedDocument {
	seen := make(map[string]struct{}, len(articles))
	docs := make([]domain.IndexedDocument, 0, len(articles))
	for _, a := range articles {
		if a.URL != "" {
			if _, dup := seen[a.URL]; dup {
				continue
			}
			seen[a.URL] = struct{}{}
		}
		docs = append(docs, a.ToIndexedDocument())
	}
	return docs
}
