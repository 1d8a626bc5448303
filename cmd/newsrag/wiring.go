package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"newsrag/internal/chunker"
	"newsrag/internal/config"
	"newsrag/internal/domain"
	"newsrag/internal/embedding/hashing"
	"newsrag/internal/embedding/openai"
	"newsrag/internal/index"
	"newsrag/internal/llm"
	"newsrag/internal/news"
	"newsrag/internal/summarizer"
	"newsrag/internal/vectorstore"
	"newsrag/internal/vectorstore/badgerstore"
	"newsrag/internal/vectorstore/flat"
	"newsrag/internal/vectorstore/memory"
	"newsrag/internal/vectorstore/qdrant"
	"newsrag/internal/vectorstore/sqlite"
)

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func buildRetriever(cfg config.NewsConfig, log logrus.FieldLogger) (*news.Retriever, error) {
	key, err := config.ResolveAPIKey(cfg.APIKeyEnv)
	if err != nil {
		return nil, err
	}
	client, err := news.NewClient(news.Config{
		BaseURL:  cfg.BaseURL,
		APIKey:   key,
		SortBy:   cfg.SortBy,
		DaysBack: cfg.DaysBack,
		Timeout:  secs(cfg.TimeoutSecs),
	}, log)
	if err != nil {
		return nil, err
	}
	var pages news.PageFetcher
	if cfg.FullText {
		pages = news.NewFullTextFetcher(nil)
	}
	return news.NewRetriever(client, pages, log), nil
}

func buildEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing":
		return hashing.NewEmbedder(cfg.Dimension), nil
	case "openai":
		var key string
		if cfg.OpenAI.APIKeyEnv != "" {
			var err error
			if key, err = config.ResolveAPIKey(cfg.OpenAI.APIKeyEnv); err != nil {
				return nil, err
			}
		}
		return openai.NewClient(openai.Config{
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  key,
			Model:   cfg.OpenAI.Model,
			Timeout: secs(cfg.OpenAI.TimeoutSecs),
		})
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownEmbedder, cfg.Type)
}

func buildIndex(cfg config.IndexConfig, embedder domain.Embedder, log logrus.FieldLogger) (*index.Index, error) {
	var st vectorstore.Storage
	switch cfg.Type {
	case "badger":
		st = badgerstore.NewStorage(cfg.Dir, "articles", log)
	case "flat":
		st = flat.NewStorage(cfg.Dir, log)
	case "sqlite":
		st = sqlite.NewStorage(cfg.Dir, log)
	case "memory":
		st = memory.NewStorage()
	case "qdrant":
		// The API key is optional for a local Qdrant.
		var apiKey string
		if cfg.Qdrant.APIKeyEnv != "" {
			apiKey, _ = config.ResolveAPIKey(cfg.Qdrant.APIKeyEnv)
		}
		st = qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     apiKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    secs(cfg.Qdrant.TimeoutSecs),
		}, log)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownIndex, cfg.Type)
	}
	return index.New(embedder, st, log), nil
}

func buildChunker(cfg config.SummarizerConfig) (domain.Chunker, error) {
	switch cfg.Chunker {
	case "recursive":
		return chunker.NewRecursiveChunker(cfg.ChunkSize, cfg.Overlap()), nil
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownChunker, cfg.Chunker)
}

func buildSummarizer(cfg config.SummarizerConfig) (*summarizer.Summarizer, error) {
	ch, err := buildChunker(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "frequency":
		return summarizer.NewExtractiveSummarizer(ch), nil
	case "llm":
		key, err := config.ResolveAPIKey(cfg.LLM.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		model, err := llm.NewChatClient(llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      key,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     secs(cfg.LLM.TimeoutSecs),
		})
		if err != nil {
			return nil, err
		}
		return summarizer.NewLLM(ch, model), nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownSummarizer, cfg.Type)
}
