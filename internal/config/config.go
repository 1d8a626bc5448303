package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingAPIKey      = errors.New("missing API key")
	ErrUnknownEmbedder    = errors.New("unknown embedder type")
	ErrUnknownIndex       = errors.New("unknown index type")
	ErrUnknownSummarizer  = errors.New("unknown summarizer type")
	ErrUnknownChunker     = errors.New("unknown chunker type")
	ErrInvalidChunkLayout = errors.New("chunk overlap must be smaller than chunk size")
)

// NewsConfig configures the NewsAPI-style search endpoint.
type NewsConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	SortBy      string `yaml:"sort_by"`
	DaysBack    int    `yaml:"days_back"`
	FullText    bool   `yaml:"full_text"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// IndexConfig selects the similarity index backend.
type IndexConfig struct {
	Type   string        `yaml:"type"`
	Dir    string        `yaml:"dir"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LLMConfig describes the chat-completion endpoint used for summaries.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type              string     `yaml:"type"`
	Chunker           string     `yaml:"chunker"`
	ChunkSize         int        `yaml:"chunk_size"`
	ChunkOverlap      *int       `yaml:"chunk_overlap,omitempty"`
	SentencesPerChunk int        `yaml:"sentences_per_chunk"`
	OverlapSentences  int        `yaml:"overlap_sentences"`
	LLM               *LLMConfig `yaml:"llm,omitempty"`
}

// DefaultChunkOverlap applies when chunk_overlap is not set; an explicit 0 is kept.
const DefaultChunkOverlap = 200

// Overlap returns the configured recursive chunk overlap.
func (s SummarizerConfig) Overlap() int {
	if s.ChunkOverlap == nil {
		return DefaultChunkOverlap
	}
	return *s.ChunkOverlap
}

// UserDataConfig points at the persisted preferences and history document.
type UserDataConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls the application log.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	News       NewsConfig       `yaml:"news"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Index      IndexConfig      `yaml:"index"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	UserData   UserDataConfig   `yaml:"user_data"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/newsrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/newsrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects component types the application cannot assemble.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "hashing", "openai":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEmbedder, c.Embedder.Type)
	}
	switch c.Index.Type {
	case "badger", "flat", "sqlite", "qdrant", "memory":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownIndex, c.Index.Type)
	}
	switch c.Summarizer.Type {
	case "llm", "frequency":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSummarizer, c.Summarizer.Type)
	}
	switch c.Summarizer.Chunker {
	case "recursive":
		if c.Summarizer.Overlap() >= c.Summarizer.ChunkSize {
			return ErrInvalidChunkLayout
		}
	case "sentence":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChunker, c.Summarizer.Chunker)
	}
	return nil
}

// ResolveAPIKey reads a credential from the named environment variable.
// Missing or blank values are an error.
func ResolveAPIKey(envName string) (string, error) {
	if strings.TrimSpace(envName) == "" {
		return "", fmt.Errorf("%w: no environment variable configured", ErrMissingAPIKey)
	}
	key := strings.TrimSpace(os.Getenv(envName))
	if key == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingAPIKey, envName)
	}
	return key, nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "newsrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		News:       NewsConfig{},
		Embedder:   EmbedderConfig{Type: "hashing"},
		Index:      IndexConfig{Type: "badger"},
		Summarizer: SummarizerConfig{Type: "llm", Chunker: "recursive"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.News.BaseURL == "" {
		cfg.News.BaseURL = "https://newsapi.org/v2"
	}
	if cfg.News.APIKeyEnv == "" {
		cfg.News.APIKeyEnv = "NEWS_API_KEY"
	}
	if cfg.News.TimeoutSecs == 0 {
		cfg.News.TimeoutSecs = 30
	}
	if cfg.News.SortBy == "" {
		cfg.News.SortBy = "publishedAt"
	}
	if cfg.News.DaysBack == 0 {
		cfg.News.DaysBack = 7
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 512
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		// A custom base_url with no api_key_env is a keyless local server such as Ollama.
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
			if cfg.Embedder.OpenAI.APIKeyEnv == "" {
				cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
			}
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}

	if cfg.Index.Type == "" {
		cfg.Index.Type = "badger"
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "db"
	}
	if cfg.Index.Type == "qdrant" {
		if cfg.Index.Qdrant == nil {
			cfg.Index.Qdrant = &QdrantConfig{}
		}
		if cfg.Index.Qdrant.URL == "" {
			cfg.Index.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.Index.Qdrant.Collection == "" {
			cfg.Index.Qdrant.Collection = "articles"
		}
		if cfg.Index.Qdrant.TimeoutSecs == 0 {
			cfg.Index.Qdrant.TimeoutSecs = 15
		}
	}

	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "llm"
	}
	if cfg.Summarizer.Chunker == "" {
		cfg.Summarizer.Chunker = "recursive"
	}
	if cfg.Summarizer.ChunkSize == 0 {
		cfg.Summarizer.ChunkSize = 1000
	}
	if cfg.Summarizer.ChunkOverlap == nil {
		overlap := DefaultChunkOverlap
		cfg.Summarizer.ChunkOverlap = &overlap
	}
	if cfg.Summarizer.SentencesPerChunk == 0 {
		cfg.Summarizer.SentencesPerChunk = 5
	}
	if cfg.Summarizer.Type == "llm" {
		if cfg.Summarizer.LLM == nil {
			cfg.Summarizer.LLM = &LLMConfig{}
		}
		llm := cfg.Summarizer.LLM
		if llm.BaseURL == "" {
			llm.BaseURL = "https://api.groq.com/openai/v1"
		}
		if llm.APIKeyEnv == "" {
			llm.APIKeyEnv = "GROQ_API_KEY"
		}
		if llm.Model == "" {
			llm.Model = "llama-3.3-70b-versatile"
		}
		if llm.Temperature == 0 {
			llm.Temperature = 0.7
		}
		if llm.MaxTokens == 0 {
			llm.MaxTokens = 4096
		}
		if llm.TimeoutSecs == 0 {
			llm.TimeoutSecs = 60
		}
	}

	if cfg.UserData.Path == "" {
		cfg.UserData.Path = "user_data.json"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = "newsrag.log"
	}
}
