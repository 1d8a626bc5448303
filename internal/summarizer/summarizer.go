// Package summarizer turns one article into a brief or detailed summary by
// chunking its composite text and handing the chunks to a SummaryPolicy.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"newsrag/internal/domain"
)

var (
	ErrEmptyArticle = errors.New("article has no text to summarize")
	ErrNoPolicy     = errors.New("no summary policy registered")
)

type Summarizer struct {
	chunker  domain.Chunker
	policies map[domain.SummaryType]domain.SummaryPolicy
}

// New registers one policy per summary type.
func New(chunker domain.Chunker, policies map[domain.SummaryType]domain.SummaryPolicy) *Summarizer {
	return &Summarizer{chunker: chunker, policies: policies}
}

// NewLLM wires the default language-model policies: map-reduce for brief
// summaries and a single stuffed call for detailed ones.
func NewLLM(chunker domain.Chunker, model domain.ChatModel) *Summarizer {
	return New(chunker, map[domain.SummaryType]domain.SummaryPolicy{
		domain.SummaryBrief:    NewMapReduce(model, BriefPrompt),
		domain.SummaryDetailed: NewStuff(model, DetailedPrompt),
	})
}

// NewExtractiveSummarizer wires offline sentence ranking: two sentences for
// brief summaries, five for detailed ones.
func NewExtractiveSummarizer(chunker domain.Chunker) *Summarizer {
	return New(chunker, map[domain.SummaryType]domain.SummaryPolicy{
		domain.SummaryBrief:    NewExtractive(2),
		domain.SummaryDetailed: NewExtractive(5),
	})
}

func (s *Summarizer) Summarize(ctx context.Context, article domain.Article, summaryType domain.SummaryType) (string, error) {
	policy, ok := s.policies[summaryType]
	if !ok {
		return "", fmt.Errorf("%w for %q", ErrNoPolicy, summaryType)
	}
	chunks, err := s.chunker.Chunk(domain.Document{ID: article.URL, Content: CompositeText(article)})
	if err != nil {
		return "", fmt.Errorf("chunk article: %w", err)
	}
	if len(chunks) == 0 {
		return "", ErrEmptyArticle
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	out, err := policy.Summarize(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("%s summary: %w", policy.Name(), err)
	}
	return strings.TrimSpace(out), nil
}

// CompositeText labels the non-empty title, source, description and content
// parts and separates them with blank lines.
func CompositeText(a domain.Article) string {
	var b strings.Builder
	for _, part := range []struct{ label, value string }{
		{"Title", a.Title},
		{"Source", a.Source},
		{"Description", a.Description},
		{"Content", a.Content},
	} {
		if part.value == "" {
			continue
		}
		b.WriteString(part.label)
		b.WriteString(": ")
		b.WriteString(part.value)
		b.WriteString("\n\n")
	}
	return b.String()
}
