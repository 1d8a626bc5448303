package summarizer

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	sentencePattern = regexp.MustCompile(`(?s)[^.!?]+(?:[.!?]+|$)`)
	wordPattern     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// Extractive ranks sentences by normalized word frequency (stopwords
// filtered) and keeps the best ones in their original order. It needs no
// language model.
type Extractive struct {
	maxSentences int
	stopwords    map[string]struct{}
}

// NewExtractive creates a frequency-based sentence ranker keeping at most maxSentences.
func NewExtractive(maxSentences int) *Extractive {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	return &Extractive{maxSentences: maxSentences, stopwords: defaultStopwords()}
}

func (e *Extractive) Name() string { return "extractive" }

// Summarize ranks the distinct sentences of all chunks. Sentences repeated by
// chunk overlap are counted once.
func (e *Extractive) Summarize(_ context.Context, chunks []string) (string, error) {
	var sentences []string
	seen := map[string]struct{}{}
	for _, chunk := range chunks {
		for _, s := range sentencePattern.FindAllString(chunk, -1) {
			s = strings.Join(strings.Fields(s), " ")
			if s == "" {
				continue
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return "", nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range e.tokens(sent) {
			if _, ok := e.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := e.tokens(sent)
		sum := 0.0
		for _, tok := range toks {
			sum += freq[tok]
		}
		// Long sentences would otherwise always win.
		if l := float64(len(toks)); l > 0 {
			sum /= math.Sqrt(l)
		}
		scores[i] = scored{i, sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	n := min(e.maxSentences, len(scores))
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, 0, n)
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " "), nil
}

func (e *Extractive) tokens(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
