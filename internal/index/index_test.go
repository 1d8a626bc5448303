package index

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrag/internal/domain"
	"newsrag/internal/embedding/hashing"
	"newsrag/internal/vectorstore/flat"
	"newsrag/internal/vectorstore/memory"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func techArticles() []domain.Article {
	return []domain.Article{
		{
			Title:       "Example Tech Article",
			Source:      "Tech News",
			Author:      "John Doe",
			Description: "This is an example tech article for testing",
			Content:     "This is the full content of the example tech article.",
			URL:         "https://example.com/tech-article",
			PublishedAt: "2023-01-01T12:00:00Z",
		},
		{
			Title:       "Another Tech Article",
			Source:      "Tech Daily",
			Author:      "Jane Smith",
			Description: "This is another tech article for testing",
			Content:     "This is the full content of another tech article.",
			URL:         "https://example.com/another-tech-article",
			PublishedAt: "2023-01-02T12:00:00Z",
		},
	}
}

func TestQuery_BeforeBuild(t *testing.T) {
	ix := New(hashing.NewEmbedder(128), memory.NewStorage(), quietLogger())
	_, err := ix.Query(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.False(t, ix.Ready())
}

func TestBuildAndQuery_TechArticles(t *testing.T) {
	ctx := context.Background()
	ix := New(hashing.NewEmbedder(512), memory.NewStorage(), quietLogger())
	require.NoError(t, ix.Build(ctx, techArticles()))

	got, err := ix.Query(ctx, "tech article", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	titles := []string{got[0].Title, got[1].Title}
	assert.ElementsMatch(t, []string{"Example Tech Article", "Another Tech Article"}, titles)
	for _, a := range got {
		assert.NotEmpty(t, a.Text)
		assert.Contains(t, a.Text, a.Title)
	}
}

func TestBuild_CollapsesDuplicateURLs(t *testing.T) {
	ctx := context.Background()
	arts := techArticles()
	dup := arts[0]
	dup.Title = "Duplicate"
	noURL := domain.Article{Title: "Loose one"}
	arts = append(arts, dup, noURL, noURL)

	ix := New(hashing.NewEmbedder(256), memory.NewStorage(), quietLogger())
	require.NoError(t, ix.Build(ctx, arts))

	got, err := ix.Query(ctx, "article", 10)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	for _, a := range got {
		assert.NotEqual(t, "Duplicate", a.Title)
	}
}

func TestBuild_EmptyThenQuery(t *testing.T) {
	ix := New(hashing.NewEmbedder(64), memory.NewStorage(), quietLogger())
	require.NoError(t, ix.Build(context.Background(), nil))

	got, err := ix.Query(context.Background(), "x", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_PersistedFlatIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := New(hashing.NewEmbedder(512), flat.NewStorage(dir, quietLogger()), quietLogger())
	require.NoError(t, first.Build(ctx, techArticles()))

	second := New(hashing.NewEmbedder(512), flat.NewStorage(dir, quietLogger()), quietLogger())
	require.True(t, second.Load(ctx))

	got, err := second.Query(ctx, "Another Tech Article", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com/another-tech-article", got[0].URL)
}

func TestLoad_FailureIsReportedNotRaised(t *testing.T) {
	ix := New(hashing.NewEmbedder(64), memory.NewStorage(), quietLogger())
	assert.False(t, ix.Load(context.Background()))
	_, err := ix.Query(context.Background(), "x", 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestLoad_RejectsIndexFromOtherEmbedder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := New(hashing.NewEmbedder(512), flat.NewStorage(dir, quietLogger()), quietLogger())
	require.NoError(t, first.Build(ctx, techArticles()))

	second := New(hashing.NewEmbedder(128), flat.NewStorage(dir, quietLogger()), quietLogger())
	assert.False(t, second.Load(ctx))
	_, err := second.Query(ctx, "Another Tech Article", 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

// lazyEmbedder learns its dimension only on first use, like a remote model.
type lazyEmbedder struct{ dim int }

func (lazyEmbedder) Name() string   { return "lazy" }
func (lazyEmbedder) Dimension() int { return 0 }
func (e lazyEmbedder) Embed(context.Context, string) ([]float64, error) {
	v := make([]float64, e.dim)
	v[0] = 1
	return v, nil
}

func TestQuery_FailsOnVectorSizeMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := New(hashing.NewEmbedder(512), flat.NewStorage(dir, quietLogger()), quietLogger())
	require.NoError(t, first.Build(ctx, techArticles()))

	second := New(lazyEmbedder{dim: 8}, flat.NewStorage(dir, quietLogger()), quietLogger())
	require.True(t, second.Load(ctx))
	_, err := second.Query(ctx, "tech", 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string   { return "failing" }
func (failingEmbedder) Dimension() int { return 0 }
func (failingEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("boom")
}

func TestBuild_EmbedFailureLeavesIndexUnready(t *testing.T) {
	ix := New(failingEmbedder{}, memory.NewStorage(), quietLogger())
	assert.Error(t, ix.Build(context.Background(), techArticles()))
	assert.False(t, ix.Ready())
}
