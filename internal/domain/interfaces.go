package domain

import "context"

// Document is a unit of text handed to a Chunker.
type Document struct {
	ID      string
	Content string
}

// Chunk is a bounded piece of a document produced by a Chunker.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
}

// IndexedDocument is the searchable form of an Article kept by the similarity index.
type IndexedDocument struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// SearchResult represents a matching document with a relevance score.
type SearchResult struct {
	Document IndexedDocument
	Score    float64
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits documents into chunks that fit a downstream model's input limit.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// ChatModel completes a single prompt with a hosted language model.
type ChatModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SummaryPolicy turns the chunks of one article into a single summary.
type SummaryPolicy interface {
	Name() string
	Summarize(ctx context.Context, chunks []string) (string, error)
}
