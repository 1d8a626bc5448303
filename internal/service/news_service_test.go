package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrag/internal/domain"
	"newsrag/internal/news"
	"newsrag/internal/userdata"
)

type stubRetriever struct {
	got      news.Query
	articles []domain.Article
	err      error
}

func (r *stubRetriever) Retrieve(_ context.Context, q news.Query) ([]domain.Article, error) {
	r.got = q
	return r.articles, r.err
}

type stubIndex struct {
	built    []domain.Article
	buildErr error
	queryErr error
	loaded   bool
}

func (ix *stubIndex) Build(_ context.Context, a []domain.Article) error {
	if ix.buildErr != nil {
		return ix.buildErr
	}
	ix.built = a
	return nil
}

func (ix *stubIndex) Load(context.Context) bool { return ix.loaded }

func (ix *stubIndex) Query(_ context.Context, _ string, k int) ([]domain.Article, error) {
	if ix.queryErr != nil {
		return nil, ix.queryErr
	}
	return ix.built[:min(k, len(ix.built))], nil
}

type stubSummarizer struct {
	types []domain.SummaryType
	err   error
}

func (s *stubSummarizer) Summarize(_ context.Context, a domain.Article, t domain.SummaryType) (string, error) {
	s.types = append(s.types, t)
	if s.err != nil {
		return "", s.err
	}
	return string(t) + ": " + a.Title, nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newService(t *testing.T, r *stubRetriever, ix *stubIndex, sum *stubSummarizer) (*NewsService, *userdata.Store) {
	t.Helper()
	store, err := userdata.Open(filepath.Join(t.TempDir(), "user_data.json"), quietLogger())
	require.NoError(t, err)
	return NewNewsService(r, ix, sum, store, quietLogger()), store
}

func twoArticles() []domain.Article {
	return []domain.Article{
		{Title: "One", URL: "https://x/1"},
		{Title: "Two", URL: "https://x/2"},
	}
}

func TestSearch_UsesPreferencesLogsHistoryAndIndexes(t *testing.T) {
	r := &stubRetriever{articles: twoArticles()}
	ix := &stubIndex{}
	svc, store := newService(t, r, ix, &stubSummarizer{})

	lang, n := "de", 7
	require.NoError(t, store.UpdatePreferences(userdata.PreferencesUpdate{Language: &lang, ArticlesPerTopic: &n}))

	out, err := svc.Search(context.Background(), "  climate  ")
	require.NoError(t, err)
	assert.Len(t, out.Articles, 2)
	assert.Equal(t, 2, out.Indexed)
	assert.NoError(t, out.IndexErr)

	assert.Equal(t, news.Query{Q: "climate", Language: "de", PageSize: 7}, r.got)
	assert.Equal(t, twoArticles(), ix.built)

	h := svc.SearchHistory(10)
	require.Len(t, h, 1)
	assert.Equal(t, "climate", h[0].Query)
	assert.Equal(t, 2, h[0].NumResults)
}

func TestSearch_RetrievalErrorYieldsNoArticlesAndNoHistory(t *testing.T) {
	r := &stubRetriever{err: errors.New("news api status \"error\": rate limited")}
	svc, _ := newService(t, r, &stubIndex{}, &stubSummarizer{})

	out, err := svc.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Empty(t, out.Articles)
	assert.Empty(t, svc.SearchHistory(10))
}

func TestSearch_EmptyResultsStillLoggedButNotIndexed(t *testing.T) {
	ix := &stubIndex{}
	svc, _ := newService(t, &stubRetriever{}, ix, &stubSummarizer{})

	out, err := svc.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, out.Articles)
	assert.Nil(t, ix.built)
	require.Len(t, svc.SearchHistory(10), 1)
}

func TestSearch_IndexFailureKeepsArticles(t *testing.T) {
	ix := &stubIndex{buildErr: errors.New("disk full")}
	svc, _ := newService(t, &stubRetriever{articles: twoArticles()}, ix, &stubSummarizer{})

	out, err := svc.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, out.Articles, 2)
	assert.Zero(t, out.Indexed)
	assert.EqualError(t, out.IndexErr, "disk full")
}

func TestSearch_RejectsBlankQuery(t *testing.T) {
	svc, _ := newService(t, &stubRetriever{}, &stubIndex{}, &stubSummarizer{})
	_, err := svc.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestFindSimilar(t *testing.T) {
	ix := &stubIndex{built: twoArticles()}
	svc, _ := newService(t, &stubRetriever{}, ix, &stubSummarizer{})

	got, err := svc.FindSimilar(context.Background(), "one", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	ix.queryErr = errors.New("index not initialized")
	_, err = svc.FindSimilar(context.Background(), "one", 1)
	assert.Error(t, err)
}

func TestSummarize_DefaultsToPreferenceAndFallsBack(t *testing.T) {
	sum := &stubSummarizer{}
	svc, store := newService(t, &stubRetriever{}, &stubIndex{}, sum)

	detailed := domain.SummaryDetailed
	require.NoError(t, store.UpdatePreferences(userdata.PreferencesUpdate{SummaryType: &detailed}))

	a := domain.Article{Title: "One"}
	assert.Equal(t, "detailed: One", svc.Summarize(context.Background(), a, ""))
	assert.Equal(t, "brief: One", svc.Summarize(context.Background(), a, domain.SummaryBrief))

	sum.err = errors.New("model offline")
	assert.Equal(t, SummaryErrorText, svc.Summarize(context.Background(), a, domain.SummaryBrief))
}

func TestSummarizeAll_UsesPreferredTypeInOrder(t *testing.T) {
	sum := &stubSummarizer{}
	svc, _ := newService(t, &stubRetriever{}, &stubIndex{}, sum)

	out := svc.SummarizeAll(context.Background(), twoArticles())
	require.Len(t, out, 2)
	assert.Equal(t, "brief: One", out[0].Summary)
	assert.Equal(t, "brief: Two", out[1].Summary)
	assert.Equal(t, []domain.SummaryType{domain.SummaryBrief, domain.SummaryBrief}, sum.types)
}

func TestLoadIndex(t *testing.T) {
	svc, _ := newService(t, &stubRetriever{}, &stubIndex{loaded: true}, &stubSummarizer{})
	assert.True(t, svc.LoadIndex(context.Background()))
}

func TestTopicPassThroughs(t *testing.T) {
	svc, _ := newService(t, &stubRetriever{}, &stubIndex{}, &stubSummarizer{})
	added, err := svc.AddTopic("science")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"science"}, svc.Topics())
	removed, err := svc.RemoveTopic("science")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, svc.Topics())
}
