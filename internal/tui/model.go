package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"newsrag/internal/domain"
	"newsrag/internal/index"
	"newsrag/internal/service"
	"newsrag/internal/userdata"
)

// NewsPort is the TUI-facing subset of the news service.
type NewsPort interface {
	Search(ctx context.Context, query string) (service.SearchOutcome, error)
	FindSimilar(ctx context.Context, query string, k int) ([]domain.Article, error)
	Summarize(ctx context.Context, article domain.Article, summaryType domain.SummaryType) string
	SummarizeAll(ctx context.Context, articles []domain.Article) []service.ArticleSummary
	Preferences() domain.UserPreferences
	UpdatePreferences(u userdata.PreferencesUpdate) error
	Topics() []string
	AddTopic(topic string) (bool, error)
	RemoveTopic(topic string) (bool, error)
	SearchHistory(limit int) []domain.SearchHistoryEntry
}

type screen int

const (
	screenMain screen = iota
	screenSearchQuery
	screenTopics
	screenManageTopics
	screenAddTopic
	screenRemoveTopic
	screenHistory
	screenPreferences
	screenPrefSummaryType
	screenPrefArticleCount
	screenPrefLanguage
	screenArticles
	screenArticle
	screenSimilarQuery
)

const (
	similarK     = 5
	historyLimit = 10
)

type (
	searchDoneMsg struct {
		query   string
		outcome service.SearchOutcome
		err     error
	}
	similarDoneMsg struct {
		query    string
		articles []domain.Article
		err      error
	}
	summaryDoneMsg struct {
		article domain.Article
		summary string
	}
	summariesDoneMsg struct {
		summaries []service.ArticleSummary
	}
)

// Model is the Bubble Tea model driving the numbered menus.
type Model struct {
	ctx      context.Context
	svc      NewsPort
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	screen    screen
	articles  []domain.Article
	listTitle string
	current   int
	output    string
	notice    string
	busy      string
	quitting  bool
}

// New creates a new TUI model instance. ctx bounds every service call.
func New(ctx context.Context, svc NewsPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Enter your choice"
	ti.Focus()
	ti.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		svc:      svc,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(lineWidth+4, 12),
		notice:   "Welcome to News Summarizer App!",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = max(20, msg.Width-2)
		_, frame := outputBoxStyle.GetFrameSize()
		reserved := lipgloss.Height(m.renderMenu()) + frame + 5
		m.viewport.Height = max(3, msg.Height-reserved)
		return m, nil
	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case searchDoneMsg:
		return m.onSearchDone(msg), nil
	case similarDoneMsg:
		return m.onSimilarDone(msg), nil
	case summaryDoneMsg:
		m.busy = ""
		m.setOutput(renderArticle(msg.article, msg.summary))
		return m, nil
	case summariesDoneMsg:
		m.busy = ""
		parts := make([]string, 0, len(msg.summaries))
		for _, s := range msg.summaries {
			parts = append(parts, renderArticle(s.Article, s.Summary))
		}
		m.setOutput(strings.Join(parts, "\n"))
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			if m.busy != "" {
				return m, nil
			}
			value := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			m.notice = ""
			return m.handleInput(value)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleInput(value string) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenMain:
		return m.onMain(value)
	case screenSearchQuery:
		if value == "" {
			m.notice = "Search query cannot be empty."
			m.screen = screenMain
			return m, nil
		}
		return m.startSearch(value)
	case screenTopics:
		return m.onTopics(value)
	case screenManageTopics:
		return m.onManageTopics(value), nil
	case screenAddTopic:
		return m.onAddTopic(value), nil
	case screenRemoveTopic:
		return m.onRemoveTopic(value), nil
	case screenHistory:
		m.screen = screenMain
		m.setOutput("")
		return m, nil
	case screenPreferences:
		return m.onPreferences(value), nil
	case screenPrefSummaryType:
		return m.onPrefSummaryType(value), nil
	case screenPrefArticleCount:
		return m.onPrefArticleCount(value), nil
	case screenPrefLanguage:
		return m.onPrefLanguage(value), nil
	case screenArticles:
		return m.onArticles(value)
	case screenArticle:
		return m.onArticle(value)
	case screenSimilarQuery:
		if value == "" {
			m.notice = "Query cannot be empty."
			m.screen = screenArticles
			return m, nil
		}
		return m.startWork(fmt.Sprintf("Finding articles similar to '%s'...", value), m.similarCmd(value))
	}
	return m, nil
}

func (m Model) onMain(value string) (tea.Model, tea.Cmd) {
	switch value {
	case "1":
		m.screen = screenSearchQuery
	case "2":
		if len(m.svc.Topics()) == 0 {
			m.notice = "No saved topics found."
			return m, nil
		}
		m.screen = screenTopics
	case "3":
		m.screen = screenManageTopics
	case "4":
		history := m.svc.SearchHistory(historyLimit)
		if len(history) == 0 {
			m.notice = "No search history found."
			return m, nil
		}
		m.setOutput(renderHistory(history))
		m.screen = screenHistory
	case "5":
		m.screen = screenPreferences
	case "6":
		m.quitting = true
		m.notice = "Thank you for using News Summarizer App. Goodbye!"
		return m, tea.Quit
	default:
		m.notice = "Invalid choice. Please try again."
	}
	return m, nil
}

func (m Model) startSearch(query string) (tea.Model, tea.Cmd) {
	return m.startWork(fmt.Sprintf("Searching for '%s'...", query), m.searchCmd(query))
}

func (m Model) startWork(label string, work tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy = label
	return m, tea.Batch(m.spinner.Tick, work)
}

func (m Model) onSearchDone(msg searchDoneMsg) Model {
	m.busy = ""
	if msg.err != nil {
		m.notice = "Error: " + msg.err.Error()
		m.screen = screenMain
		return m
	}
	if len(msg.outcome.Articles) == 0 {
		m.notice = "No articles found."
		m.screen = screenMain
		return m
	}
	m.articles = msg.outcome.Articles
	m.listTitle = fmt.Sprintf("Found %d articles for '%s'.", len(m.articles), msg.query)
	if msg.outcome.IndexErr != nil {
		m.notice = "Error adding articles to vector database: " + msg.outcome.IndexErr.Error()
	} else {
		m.notice = fmt.Sprintf("Added %d articles to vector database.", msg.outcome.Indexed)
	}
	m.screen = screenArticles
	m.setOutput("")
	return m
}

func (m Model) onSimilarDone(msg similarDoneMsg) Model {
	m.busy = ""
	m.screen = screenArticles
	switch {
	case errors.Is(msg.err, index.ErrNotInitialized):
		m.notice = "The article index is empty. Search for news first."
	case msg.err != nil:
		m.notice = "Error finding similar articles: " + msg.err.Error()
	case len(msg.articles) == 0:
		m.notice = "No similar articles found."
	default:
		m.articles = msg.articles
		m.listTitle = fmt.Sprintf("Articles similar to '%s':", msg.query)
		m.setOutput("")
	}
	return m
}

func (m Model) onTopics(value string) (tea.Model, tea.Cmd) {
	if strings.EqualFold(value, "b") {
		m.screen = screenMain
		return m, nil
	}
	topics := m.svc.Topics()
	n, err := strconv.Atoi(value)
	if err != nil {
		m.notice = "Invalid choice. Please try again."
		return m, nil
	}
	if n < 1 || n > len(topics) {
		m.notice = "Invalid topic number."
		return m, nil
	}
	return m.startSearch(topics[n-1])
}

func (m Model) onManageTopics(value string) Model {
	switch strings.ToUpper(value) {
	case "A":
		m.screen = screenAddTopic
	case "R":
		if len(m.svc.Topics()) == 0 {
			m.notice = "No topics to remove."
			return m
		}
		m.screen = screenRemoveTopic
	case "B":
		m.screen = screenMain
	default:
		m.notice = "Invalid choice. Please try again."
	}
	return m
}

func (m Model) onAddTopic(value string) Model {
	m.screen = screenManageTopics
	if value == "" {
		m.notice = "Topic cannot be empty."
		return m
	}
	added, err := m.svc.AddTopic(value)
	switch {
	case err != nil:
		m.notice = "Error saving topic: " + err.Error()
	case added:
		m.notice = fmt.Sprintf("Topic '%s' added successfully.", value)
	default:
		m.notice = fmt.Sprintf("Topic '%s' is already saved.", value)
	}
	return m
}

func (m Model) onRemoveTopic(value string) Model {
	m.screen = screenManageTopics
	topics := m.svc.Topics()
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > len(topics) {
		m.notice = "Invalid topic number."
		return m
	}
	topic := topics[n-1]
	removed, err := m.svc.RemoveTopic(topic)
	switch {
	case err != nil:
		m.notice = "Error saving topics: " + err.Error()
	case removed:
		m.notice = fmt.Sprintf("Topic '%s' removed successfully.", topic)
	default:
		m.notice = fmt.Sprintf("Failed to remove topic '%s'.", topic)
	}
	return m
}

func (m Model) onPreferences(value string) Model {
	switch strings.ToUpper(value) {
	case "1":
		m.screen = screenPrefSummaryType
	case "2":
		m.screen = screenPrefArticleCount
	case "3":
		m.screen = screenPrefLanguage
	case "B":
		m.screen = screenMain
	default:
		m.notice = "Invalid choice. Please try again."
	}
	return m
}

func (m Model) onPrefSummaryType(value string) Model {
	m.screen = screenPreferences
	var st domain.SummaryType
	switch value {
	case "1":
		st = domain.SummaryBrief
	case "2":
		st = domain.SummaryDetailed
	default:
		m.notice = "Invalid choice."
		return m
	}
	if err := m.svc.UpdatePreferences(userdata.PreferencesUpdate{SummaryType: &st}); err != nil {
		m.notice = "Error saving preferences: " + err.Error()
		return m
	}
	m.notice = fmt.Sprintf("Summary type updated to '%s'.", st)
	return m
}

func (m Model) onPrefArticleCount(value string) Model {
	m.screen = screenPreferences
	n, err := strconv.Atoi(value)
	if err != nil {
		m.notice = "Invalid number."
		return m
	}
	if n < domain.MinArticlesPerTopic || n > domain.MaxArticlesPerTopic {
		m.notice = fmt.Sprintf("Number must be between %d and %d.", domain.MinArticlesPerTopic, domain.MaxArticlesPerTopic)
		return m
	}
	if err := m.svc.UpdatePreferences(userdata.PreferencesUpdate{ArticlesPerTopic: &n}); err != nil {
		m.notice = "Error saving preferences: " + err.Error()
		return m
	}
	m.notice = fmt.Sprintf("Articles per topic updated to %d.", n)
	return m
}

func (m Model) onPrefLanguage(value string) Model {
	m.screen = screenPreferences
	if utf8.RuneCountInString(value) != 2 {
		m.notice = "Invalid language code."
		return m
	}
	lang := strings.ToLower(value)
	if err := m.svc.UpdatePreferences(userdata.PreferencesUpdate{Language: &lang}); err != nil {
		m.notice = "Error saving preferences: " + err.Error()
		return m
	}
	m.notice = fmt.Sprintf("Language updated to '%s'.", lang)
	return m
}

func (m Model) onArticles(value string) (tea.Model, tea.Cmd) {
	switch strings.ToUpper(value) {
	case "B":
		m.screen = screenMain
		m.setOutput("")
		return m, nil
	case "S":
		st := m.svc.Preferences().SummaryType
		return m.startWork(fmt.Sprintf("Generating %s summaries for all articles...", st), m.summarizeAllCmd(m.articles))
	case "F":
		m.screen = screenSimilarQuery
		return m, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		m.notice = "Invalid choice. Please try again."
		return m, nil
	}
	if n < 1 || n > len(m.articles) {
		m.notice = "Invalid article number."
		return m, nil
	}
	m.current = n - 1
	m.screen = screenArticle
	m.setOutput("")
	return m, nil
}

func (m Model) onArticle(value string) (tea.Model, tea.Cmd) {
	a := m.articles[m.current]
	switch value {
	case "1":
		m.setOutput(renderArticle(a, ""))
	case "2":
		return m.startWork("Generating brief summary...", m.summarizeCmd(a, domain.SummaryBrief))
	case "3":
		return m.startWork("Generating detailed summary...", m.summarizeCmd(a, domain.SummaryDetailed))
	case "4":
		m.screen = screenArticles
		m.setOutput("")
	default:
		m.notice = "Invalid choice. Please try again."
	}
	return m, nil
}

func (m *Model) setOutput(s string) {
	m.output = s
	m.viewport.SetContent(s)
	m.viewport.GotoTop()
}

func (m Model) searchCmd(query string) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		out, err := svc.Search(ctx, query)
		return searchDoneMsg{query: query, outcome: out, err: err}
	}
}

func (m Model) similarCmd(query string) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		articles, err := svc.FindSimilar(ctx, query, similarK)
		return similarDoneMsg{query: query, articles: articles, err: err}
	}
}

func (m Model) summarizeCmd(a domain.Article, st domain.SummaryType) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		return summaryDoneMsg{article: a, summary: svc.Summarize(ctx, a, st)}
	}
}

func (m Model) summarizeAllCmd(articles []domain.Article) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		return summariesDoneMsg{summaries: svc.SummarizeAll(ctx, articles)}
	}
}
