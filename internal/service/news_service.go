// Package service sequences retrieval, indexing, similarity search and
// summarization for the interactive front end.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"newsrag/internal/domain"
	"newsrag/internal/news"
	"newsrag/internal/userdata"
)

// SummaryErrorText replaces a summary the model failed to produce.
const SummaryErrorText = "Error generating summary"

var ErrEmptyQuery = errors.New("search query cannot be empty")

type Retriever interface {
	Retrieve(ctx context.Context, q news.Query) ([]domain.Article, error)
}

type Index interface {
	Build(ctx context.Context, articles []domain.Article) error
	Load(ctx context.Context) bool
	Query(ctx context.Context, text string, k int) ([]domain.Article, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, article domain.Article, summaryType domain.SummaryType) (string, error)
}

type UserStore interface {
	Preferences() domain.UserPreferences
	UpdatePreferences(u userdata.PreferencesUpdate) error
	Topics() []string
	AddTopic(topic string) (bool, error)
	RemoveTopic(topic string) (bool, error)
	AddSearchHistory(query string, numResults int) error
	SearchHistory(limit int) []domain.SearchHistoryEntry
}

// SearchOutcome is what a search produced. IndexErr is set when the articles
// were found but could not be added to the similarity index.
type SearchOutcome struct {
	Articles []domain.Article
	Indexed  int
	IndexErr error
}

// ArticleSummary pairs an article with its summary text.
type ArticleSummary struct {
	Article domain.Article
	Summary string
}

type NewsService struct {
	retriever  Retriever
	index      Index
	summarizer Summarizer
	store      UserStore
	log        logrus.FieldLogger
}

func NewNewsService(retriever Retriever, index Index, summarizer Summarizer, store UserStore, log logrus.FieldLogger) *NewsService {
	return &NewsService{
		retriever:  retriever,
		index:      index,
		summarizer: summarizer,
		store:      store,
		log:        log.WithField("component", "service"),
	}
}

// LoadIndex restores a persisted index so similarity search works before the first search.
func (s *NewsService) LoadIndex(ctx context.Context) bool {
	return s.index.Load(ctx)
}

// Search fetches articles for query using the language and page size from the
// preferences, records the search in history and rebuilds the index from the
// results. Retrieval failures are logged and returned with no articles.
func (s *NewsService) Search(ctx context.Context, query string) (SearchOutcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchOutcome{}, ErrEmptyQuery
	}
	prefs := s.store.Preferences()
	log := s.log.WithField("query", query)

	articles, err := s.retriever.Retrieve(ctx, news.Query{
		Q:        query,
		Language: prefs.Language,
		PageSize: prefs.ArticlesPerTopic,
	})
	if err != nil {
		log.WithError(err).Error("Error searching news")
		return SearchOutcome{}, err
	}
	if err := s.store.AddSearchHistory(query, len(articles)); err != nil {
		log.WithError(err).Warn("failed to record search history")
	}

	out := SearchOutcome{Articles: articles}
	if len(articles) == 0 {
		return out, nil
	}
	if err := s.index.Build(ctx, articles); err != nil {
		log.WithError(err).Error("Error adding articles to vector database")
		out.IndexErr = err
		return out, nil
	}
	out.Indexed = len(articles)
	log.WithField("articles", len(articles)).Info("search indexed")
	return out, nil
}

// FindSimilar returns up to k indexed articles closest to query.
func (s *NewsService) FindSimilar(ctx context.Context, query string, k int) ([]domain.Article, error) {
	articles, err := s.index.Query(ctx, query, k)
	if err != nil {
		s.log.WithError(err).Error("Error finding similar articles")
		return nil, err
	}
	return articles, nil
}

// Summarize produces a summary of article. An empty summaryType means the
// preferred one. Failures are logged and replaced by SummaryErrorText.
func (s *NewsService) Summarize(ctx context.Context, article domain.Article, summaryType domain.SummaryType) string {
	if summaryType == "" {
		summaryType = s.store.Preferences().SummaryType
	}
	summary, err := s.summarizer.Summarize(ctx, article, summaryType)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"url":          article.URL,
			"summary_type": summaryType,
		}).Error("Error summarizing article")
		return SummaryErrorText
	}
	return summary
}

// SummarizeAll summarizes every article with the preferred summary type, in order.
func (s *NewsService) SummarizeAll(ctx context.Context, articles []domain.Article) []ArticleSummary {
	summaryType := s.store.Preferences().SummaryType
	out := make([]ArticleSummary, 0, len(articles))
	for _, a := range articles {
		if ctx.Err() != nil {
			break
		}
		out = append(out, ArticleSummary{Article: a, Summary: s.Summarize(ctx, a, summaryType)})
	}
	return out
}

func (s *NewsService) Preferences() domain.UserPreferences { return s.store.Preferences() }

func (s *NewsService) UpdatePreferences(u userdata.PreferencesUpdate) error {
	return s.store.UpdatePreferences(u)
}

func (s *NewsService) Topics() []string { return s.store.Topics() }

func (s *NewsService) AddTopic(topic string) (bool, error) { return s.store.AddTopic(topic) }

func (s *NewsService) RemoveTopic(topic string) (bool, error) { return s.store.RemoveTopic(topic) }

func (s *NewsService) SearchHistory(limit int) []domain.SearchHistoryEntry {
	return s.store.SearchHistory(limit)
}
