package summarizer

import (
	"context"
	"fmt"
	"strings"

	"newsrag/internal/domain"
)

// Prompt is a template with a single {text} placeholder.
type Prompt string

const (
	BriefPrompt    Prompt = "Write a brief summary of the following article in 1-2 sentences:\n\n{text}\n\nBRIEF SUMMARY:"
	DetailedPrompt Prompt = "Write a detailed summary of the following article in one paragraph:\n\n{text}\n\nDETAILED SUMMARY:"
)

func (p Prompt) Render(text string) string {
	return strings.ReplaceAll(string(p), "{text}", text)
}

// chunkJoiner separates chunks and partial summaries when they are combined.
const chunkJoiner = "\n\n"

// MapReduce summarizes every chunk on its own, then summarizes the joined
// partial summaries with the same prompt.
type MapReduce struct {
	model  domain.ChatModel
	prompt Prompt
}

func NewMapReduce(model domain.ChatModel, prompt Prompt) *MapReduce {
	return &MapReduce{model: model, prompt: prompt}
}

func (m *MapReduce) Name() string { return "map_reduce" }

func (m *MapReduce) Summarize(ctx context.Context, chunks []string) (string, error) {
	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := m.model.Complete(ctx, m.prompt.Render(chunk))
		if err != nil {
			return "", fmt.Errorf("map chunk %d: %w", i, err)
		}
		partials = append(partials, strings.TrimSpace(out))
	}
	out, err := m.model.Complete(ctx, m.prompt.Render(strings.Join(partials, chunkJoiner)))
	if err != nil {
		return "", fmt.Errorf("reduce: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Stuff joins all chunks and summarizes them in a single call. Very long
// articles can overflow the model context; nothing falls back in that case.
type Stuff struct {
	model  domain.ChatModel
	prompt Prompt
}

func NewStuff(model domain.ChatModel, prompt Prompt) *Stuff {
	return &Stuff{model: model, prompt: prompt}
}

func (s *Stuff) Name() string { return "stuff" }

func (s *Stuff) Summarize(ctx context.Context, chunks []string) (string, error) {
	out, err := s.model.Complete(ctx, s.prompt.Render(strings.Join(chunks, chunkJoiner)))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
