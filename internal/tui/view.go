package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"newsrag/internal/domain"
)

const (
	lineWidth  = 80
	titleWidth = 60
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	menuStyle      = lipgloss.NewStyle().PaddingLeft(1)
	outputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	busyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// View renders the current menu, the output pane and the input line.
func (m Model) View() string {
	if m.quitting {
		return m.notice + "\n"
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("News Summarizer"))
	b.WriteString("\n\n")
	b.WriteString(menuStyle.Render(m.renderMenu()))
	b.WriteString("\n")
	if m.output != "" {
		b.WriteString(outputBoxStyle.Render(m.viewport.View()))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("PgUp/PgDn to scroll"))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	if m.busy != "" {
		b.WriteString(busyStyle.Render(m.spinner.View() + " " + m.busy))
		b.WriteString("\n")
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderMenu() string {
	switch m.screen {
	case screenMain:
		return "Main Menu:\n" +
			"1. Search for news\n" +
			"2. View saved topics\n" +
			"3. Manage topics\n" +
			"4. View search history\n" +
			"5. Update preferences\n" +
			"6. Exit\n\n" +
			"Enter your choice (1-6):"
	case screenSearchQuery:
		return "Enter search query:"
	case screenTopics:
		return "Saved Topics:\n" + numbered(m.svc.Topics()) + "\nOptions:\n1-N. Select topic to view news\nB. Back to main menu"
	case screenManageTopics:
		topics := m.svc.Topics()
		list := "No saved topics found.\n"
		if len(topics) > 0 {
			list = numbered(topics)
		}
		return "Manage Topics:\n" + list + "\nOptions:\nA. Add a new topic\nR. Remove a topic\nB. Back to main menu"
	case screenAddTopic:
		return "Enter topic to add:"
	case screenRemoveTopic:
		return "Manage Topics:\n" + numbered(m.svc.Topics()) + "\nEnter topic number to remove:"
	case screenHistory:
		return "Search History:\n\nPress Enter to return to main menu"
	case screenPreferences:
		p := m.svc.Preferences()
		return fmt.Sprintf("Current Preferences:\n1. Default summary type: %s\n2. Articles per topic: %d\n3. Language: %s\n\n"+
			"Options:\n1-3. Select preference to update\nB. Back to main menu",
			p.SummaryType, p.ArticlesPerTopic, p.Language)
	case screenPrefSummaryType:
		return "Summary Type:\n1. Brief (1-2 sentences)\n2. Detailed (paragraph)\n\nEnter your choice (1-2):"
	case screenPrefArticleCount:
		return fmt.Sprintf("Enter number of articles per topic (%d-%d):", domain.MinArticlesPerTopic, domain.MaxArticlesPerTopic)
	case screenPrefLanguage:
		return "Enter language code (e.g., 'en', 'fr', 'es'):"
	case screenArticles:
		lines := make([]string, len(m.articles))
		for i, a := range m.articles {
			lines[i] = fmt.Sprintf("%d. %s - %s", i+1, runewidth.Truncate(a.Title, titleWidth, "…"), a.Source)
		}
		return m.listTitle + "\n\nArticles:\n" + strings.Join(lines, "\n") +
			"\n\nOptions:\n1-N. Select article to view\nS. Summarize all articles\nF. Find similar articles\nB. Back to main menu"
	case screenArticle:
		a := m.articles[m.current]
		return runewidth.Truncate(a.Title, lineWidth, "…") + "\n\nArticle Options:\n" +
			"1. View article details\n2. Generate brief summary\n3. Generate detailed summary\n4. Back to articles list\n\n" +
			"Enter your choice (1-4):"
	case screenSimilarQuery:
		return "Enter text to find similar articles:"
	}
	return ""
}

func numbered(items []string) string {
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, it)
	}
	return b.String()
}

// renderArticle prints the article header, the optional summary and the
// description, with body text wrapped at lineWidth columns.
func renderArticle(a domain.Article, summary string) string {
	heavy := strings.Repeat("=", lineWidth)
	light := strings.Repeat("-", lineWidth)

	var b strings.Builder
	b.WriteString(heavy + "\n")
	fmt.Fprintf(&b, "Title: %s\n", a.Title)
	fmt.Fprintf(&b, "Source: %s\n", a.Source)
	fmt.Fprintf(&b, "Published: %s\n", a.PublishedAt)
	fmt.Fprintf(&b, "URL: %s\n", a.URL)
	b.WriteString(light + "\n")
	if summary != "" {
		b.WriteString("Summary:\n")
		b.WriteString(wordwrap.String(summary, lineWidth) + "\n")
		b.WriteString(light + "\n")
	}
	desc := a.Description
	if desc == "" {
		desc = "No description available"
	}
	b.WriteString("Description:\n")
	b.WriteString(wordwrap.String(desc, lineWidth) + "\n")
	b.WriteString(heavy)
	return b.String()
}

func renderHistory(history []domain.SearchHistoryEntry) string {
	lines := make([]string, len(history))
	for i, h := range history {
		day, _, _ := strings.Cut(h.Timestamp, "T")
		lines[i] = fmt.Sprintf("%d. [%s] '%s' (%d results)", i+1, day, h.Query, h.NumResults)
	}
	return strings.Join(lines, "\n")
}
