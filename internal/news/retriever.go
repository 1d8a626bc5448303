package news

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"newsrag/internal/domain"
)

// Searcher is the transport side of the retriever.
type Searcher interface {
	Fetch(ctx context.Context, q Query) (*Response, error)
}

// PageFetcher extracts full article text from a page URL.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Retriever fetches, checks, normalizes and optionally enriches search results.
type Retriever struct {
	searcher Searcher
	pages    PageFetcher
	log      logrus.FieldLogger
}

// NewRetriever builds a retriever; pages may be nil to keep provider content as-is.
func NewRetriever(searcher Searcher, pages PageFetcher, log logrus.FieldLogger) *Retriever {
	return &Retriever{searcher: searcher, pages: pages, log: log.WithField("component", "retriever")}
}

// Retrieve runs q and returns normalized articles. A response whose status is
// not "ok" becomes an error carrying the provider's message.
func (r *Retriever) Retrieve(ctx context.Context, q Query) ([]domain.Article, error) {
	resp, err := r.searcher.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		msg := resp.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, fmt.Errorf("news api status %q: %s", resp.Status, msg)
	}
	articles := Normalize(resp.Articles)
	if r.pages != nil {
		r.enrich(ctx, articles)
	}
	return articles, nil
}

func (r *Retriever) enrich(ctx context.Context, articles []domain.Article) {
	for i := range articles {
		a := &articles[i]
		if a.URL == "" || !IsTruncated(a.Content) {
			continue
		}
		text, err := r.pages.Fetch(ctx, a.URL)
		if err != nil {
			r.log.WithError(err).WithField("url", a.URL).Warn("full text unavailable, keeping provider content")
			continue
		}
		a.Content = text
	}
}
