package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrag/internal/domain"
	"newsrag/internal/embedding/hashing"
	"newsrag/internal/index"
	"newsrag/internal/news"
	"newsrag/internal/service"
	"newsrag/internal/userdata"
	"newsrag/internal/vectorstore/memory"
)

type stubRetriever struct {
	queries  []news.Query
	articles []domain.Article
	err      error
}

func (r *stubRetriever) Retrieve(_ context.Context, q news.Query) ([]domain.Article, error) {
	r.queries = append(r.queries, q)
	return r.articles, r.err
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, a domain.Article, t domain.SummaryType) (string, error) {
	if a.Title == "Broken" {
		return "", errors.New("model offline")
	}
	return string(t) + " summary of " + a.Title, nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func goArticles() []domain.Article {
	return []domain.Article{
		{
			Title:       "Go 1.24 released with generic type aliases",
			Source:      "Go Blog",
			Description: "The Go team shipped a new release.",
			URL:         "https://go.dev/blog/go1.24",
			PublishedAt: "2025-02-11T00:00:00Z",
		},
		{
			Title:       "Gophers gather at the annual conference",
			Source:      "Conf News",
			Description: "Talks on concurrency and tooling.",
			URL:         "https://example.com/gophercon",
			PublishedAt: "2025-02-12T00:00:00Z",
		},
	}
}

func newModel(t *testing.T, r *stubRetriever) Model {
	t.Helper()
	store, err := userdata.Open(filepath.Join(t.TempDir(), "user_data.json"), quietLogger())
	require.NoError(t, err)
	ix := index.New(hashing.NewEmbedder(256), memory.NewStorage(), quietLogger())
	svc := service.NewNewsService(r, ix, stubSummarizer{}, store, quietLogger())
	return New(context.Background(), svc)
}

// submit types value, presses Enter and runs the resulting commands to completion.
func submit(t *testing.T, m Model, value string) (Model, tea.Cmd) {
	t.Helper()
	if value != "" {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(value)})
		m = next.(Model)
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	return drain(t, m, cmd)
}

func drain(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return m, nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var last tea.Cmd
		for _, c := range msg {
			m, last = drain(t, m, c)
		}
		return m, last
	case spinner.TickMsg:
		return m, nil
	case tea.QuitMsg:
		return m, cmd
	default:
		next, follow := m.Update(msg)
		return drain(t, next.(Model), follow)
	}
}

func TestMainMenu_InvalidChoice(t *testing.T) {
	m, _ := submit(t, newModel(t, &stubRetriever{}), "9")
	assert.Equal(t, screenMain, m.screen)
	assert.Equal(t, "Invalid choice. Please try again.", m.notice)
}

func TestSearchFlow_OpenArticleAndSummarize(t *testing.T) {
	r := &stubRetriever{articles: goArticles()}
	m := newModel(t, r)

	m, _ = submit(t, m, "1")
	require.Equal(t, screenSearchQuery, m.screen)
	m, _ = submit(t, m, "golang")

	require.Equal(t, screenArticles, m.screen)
	assert.Len(t, m.articles, 2)
	assert.Equal(t, "Added 2 articles to vector database.", m.notice)
	assert.Equal(t, "golang", r.queries[0].Q)
	assert.Equal(t, 5, r.queries[0].PageSize)
	assert.Contains(t, m.View(), "1. Go 1.24 released")

	m, _ = submit(t, m, "2")
	require.Equal(t, screenArticle, m.screen)

	m, _ = submit(t, m, "1")
	assert.Contains(t, m.output, "Title: Gophers gather at the annual conference")
	assert.NotContains(t, m.output, "Summary:")

	m, _ = submit(t, m, "3")
	assert.Contains(t, m.output, "Summary:\ndetailed summary of Gophers gather")
	assert.Empty(t, m.busy)

	m, _ = submit(t, m, "4")
	assert.Equal(t, screenArticles, m.screen)
	m, _ = submit(t, m, "b")
	assert.Equal(t, screenMain, m.screen)
}

func TestSearch_EmptyQueryAndErrors(t *testing.T) {
	r := &stubRetriever{err: errors.New("news api status \"error\": apiKeyInvalid")}
	m := newModel(t, r)

	m, _ = submit(t, m, "1")
	m, _ = submit(t, m, "")
	assert.Equal(t, screenMain, m.screen)
	assert.Equal(t, "Search query cannot be empty.", m.notice)

	m, _ = submit(t, m, "1")
	m, _ = submit(t, m, "anything")
	assert.Equal(t, screenMain, m.screen)
	assert.Contains(t, m.notice, "apiKeyInvalid")

	r.err = nil
	m, _ = submit(t, m, "1")
	m, _ = submit(t, m, "nothing")
	assert.Equal(t, "No articles found.", m.notice)
}

func TestArticles_InvalidInputAndSummarizeAll(t *testing.T) {
	arts := append(goArticles(), domain.Article{Title: "Broken", URL: "https://example.com/broken"})
	m := newModel(t, &stubRetriever{articles: arts})
	m, _ = submit(t, m, "1")
	m, _ = submit(t, m, "go")

	m, _ = submit(t, m, "7")
	assert.Equal(t, "Invalid article number.", m.notice)
	m, _ = submit(t, m, "x")
	assert.Equal(t, "Invalid choice. Please try again.", m.notice)

	m, _ = submit(t, m, "s")
	assert.Equal(t, screenArticles, m.screen)
	assert.Equal(t, 3, strings.Count(m.output, "Summary:"))
	assert.Contains(t, m.output, "brief summary of Go 1.24 released")
	assert.Contains(t, m.output, service.SummaryErrorText)
}

func TestFindSimilar(t *testing.T) {
	m := newModel(t, &stubRetriever{articles: goArticles()})
	m, _ = submit(t, m, "1")
	m, _ = submit(t, m, "go")

	m, _ = submit(t, m, "f")
	require.Equal(t, screenSimilarQuery, m.screen)
	m, _ = submit(t, m, "conference talks")

	assert.Equal(t, screenArticles, m.screen)
	assert.Equal(t, "Articles similar to 'conference talks':", m.listTitle)
	require.NotEmpty(t, m.articles)
	assert.Equal(t, "Gophers gather at the annual conference", m.articles[0].Title)
}

func TestFindSimilar_BeforeIndexBuilt(t *testing.T) {
	m := newModel(t, &stubRetriever{})
	m.screen = screenSimilarQuery
	m, _ = submit(t, m, "anything")
	assert.Equal(t, "The article index is empty. Search for news first.", m.notice)
}

func TestManageTopics(t *testing.T) {
	m := newModel(t, &stubRetriever{})

	m, _ = submit(t, m, "3")
	m, _ = submit(t, m, "r")
	assert.Equal(t, "No topics to remove.", m.notice)

	m, _ = submit(t, m, "a")
	require.Equal(t, screenAddTopic, m.screen)
	m, _ = submit(t, m, "science")
	assert.Equal(t, "Topic 'science' added successfully.", m.notice)
	assert.Equal(t, screenManageTopics, m.screen)

	m, _ = submit(t, m, "A")
	m, _ = submit(t, m, "science")
	assert.Equal(t, "Topic 'science' is already saved.", m.notice)

	m, _ = submit(t, m, "A")
	m, _ = submit(t, m, "")
	assert.Equal(t, "Topic cannot be empty.", m.notice)

	m, _ = submit(t, m, "R")
	m, _ = submit(t, m, "5")
	assert.Equal(t, "Invalid topic number.", m.notice)

	m, _ = submit(t, m, "R")
	m, _ = submit(t, m, "1")
	assert.Equal(t, "Topic 'science' removed successfully.", m.notice)
	assert.Empty(t, m.svc.Topics())
}

func TestSavedTopics_SearchSelectedTopic(t *testing.T) {
	r := &stubRetriever{articles: goArticles()}
	m := newModel(t, r)

	m, _ = submit(t, m, "2")
	assert.Equal(t, "No saved topics found.", m.notice)

	_, err := m.svc.AddTopic("golang")
	require.NoError(t, err)
	m, _ = submit(t, m, "2")
	require.Equal(t, screenTopics, m.screen)
	assert.Contains(t, m.View(), "1. golang")

	m, _ = submit(t, m, "1")
	assert.Equal(t, screenArticles, m.screen)
	require.Len(t, r.queries, 1)
	assert.Equal(t, "golang", r.queries[0].Q)
}

func TestHistory(t *testing.T) {
	m := newModel(t, &stubRetriever{articles: goArticles()})

	m, _ = submit(t, m, "4")
	assert.Equal(t, "No search history found.", m.notice)

	m, _ = submit(t, m, "1")
	m, _ = submit(t, m, "golang")
	m, _ = submit(t, m, "b")

	m, _ = submit(t, m, "4")
	require.Equal(t, screenHistory, m.screen)
	assert.Regexp(t, `^1\. \[\d{4}-\d{2}-\d{2}\] 'golang' \(2 results\)$`, m.output)

	m, _ = submit(t, m, "")
	assert.Equal(t, screenMain, m.screen)
}

func TestPreferences(t *testing.T) {
	m := newModel(t, &stubRetriever{})
	m, _ = submit(t, m, "5")
	require.Equal(t, screenPreferences, m.screen)

	steps := []struct {
		choice, value, notice string
	}{
		{"2", "25", "Number must be between 1 and 20."},
		{"2", "abc", "Invalid number."},
		{"2", "12", "Articles per topic updated to 12."},
		{"3", "english", "Invalid language code."},
		{"3", "FR", "Language updated to 'fr'."},
		{"1", "3", "Invalid choice."},
		{"1", "2", "Summary type updated to 'detailed'."},
	}
	for _, s := range steps {
		m, _ = submit(t, m, s.choice)
		m, _ = submit(t, m, s.value)
		assert.Equal(t, s.notice, m.notice, "choice %s value %q", s.choice, s.value)
		assert.Equal(t, screenPreferences, m.screen)
	}

	p := m.svc.Preferences()
	assert.Equal(t, 12, p.ArticlesPerTopic)
	assert.Equal(t, "fr", p.Language)
	assert.Equal(t, domain.SummaryDetailed, p.SummaryType)
	assert.Contains(t, m.View(), "1. Default summary type: detailed")
}

func TestExit(t *testing.T) {
	m, cmd := submit(t, newModel(t, &stubRetriever{}), "6")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.quitting)
	assert.Contains(t, m.View(), "Goodbye!")
}

func TestRenderArticle_WrapsAndDefaultsDescription(t *testing.T) {
	a := domain.Article{Title: "T", Source: "S", PublishedAt: "P", URL: "U"}
	summary := strings.TrimSpace(strings.Repeat("word ", 60))

	out := renderArticle(a, summary)
	assert.Contains(t, out, "No description available")
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, runewidth.StringWidth(line), lineWidth)
	}
}

func TestArticleList_TruncatesLongTitles(t *testing.T) {
	m := newModel(t, &stubRetriever{})
	m.screen = screenArticles
	m.articles = []domain.Article{{Title: strings.Repeat("界", 100), Source: "Wide"}}

	menu := m.renderMenu()
	var line string
	for _, l := range strings.Split(menu, "\n") {
		if strings.HasPrefix(l, "1. ") {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.True(t, strings.HasSuffix(line, "… - Wide"))
	assert.LessOrEqual(t, runewidth.StringWidth(strings.TrimSuffix(strings.TrimPrefix(line, "1. "), " - Wide")), titleWidth)
}
