// Package config loads the YAML configuration file and applies
// defaults for every unset field, so a missing or partial file still
// yields a usable configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values applied when the config file omits a field.
const (
	DefaultMinPassageLength      = 100
	DefaultMaxPassageLength      = 420
	DefaultContextChars          = 1200
	DefaultSessionHistoryDays    = 30
	DefaultInitialBatchSize      = 8
	DefaultProgressiveBatchSize  = 4
	DefaultPDFTimeoutSeconds     = 300
	DefaultEmbeddingProvider     = "local"
	DefaultEmbeddingModel        = "nomic-embed-text"
	DefaultOllamaBaseURL         = "http://localhost:11434"
	DefaultOpenAIAPIKeyEnv       = "OPENAI_API_KEY"
	defaultDBFileName            = "passages.db"
	defaultSavedPassagesFileName = "saved_passages.csv"
)

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// Config is the full application configuration.
type Config struct {
	LibraryPath           string          `yaml:"library_path"`
	DBPath                string          `yaml:"db_path"`
	SavedPassagesPath     string          `yaml:"saved_passages_path"`
	MinPassageLength      int             `yaml:"min_passage_length"`
	MaxPassageLength      int             `yaml:"max_passage_length"`
	ContextChars          int             `yaml:"context_chars"`
	SessionHistoryDays    int             `yaml:"session_history_days"`
	InitialBatchSize      int             `yaml:"initial_indexing_batch_size"`
	ProgressiveBatchSize  int             `yaml:"progressive_indexing_batch_size"`
	PDFTimeoutSeconds     int             `yaml:"pdf_timeout_seconds"`
	Embedding             EmbeddingConfig `yaml:"embedding"`
}

// Default returns a configuration with every field set to its default.
// LibraryPath defaults to ./library under the working directory.
func Default() *Config {
	cfg := &Config{
		LibraryPath:          "library",
		MinPassageLength:     DefaultMinPassageLength,
		MaxPassageLength:     DefaultMaxPassageLength,
		ContextChars:         DefaultContextChars,
		SessionHistoryDays:   DefaultSessionHistoryDays,
		InitialBatchSize:     DefaultInitialBatchSize,
		ProgressiveBatchSize: DefaultProgressiveBatchSize,
		PDFTimeoutSeconds:    DefaultPDFTimeoutSeconds,
		Embedding: EmbeddingConfig{
			Provider:  DefaultEmbeddingProvider,
			Model:     DefaultEmbeddingModel,
			BaseURL:   DefaultOllamaBaseURL,
			APIKeyEnv: DefaultOpenAIAPIKeyEnv,
		},
	}
	cfg.DBPath = filepath.Join(cfg.LibraryPath, defaultDBFileName)
	cfg.SavedPassagesPath = filepath.Join(cfg.LibraryPath, defaultSavedPassagesFileName)
	return cfg
}

// Load reads a YAML config file and merges it over the defaults. An
// empty path returns the defaults unchanged; a missing file is an
// error, a partial file is not.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDerivedDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetLibraryPath points the config at a different library directory and
// re-derives the database and export paths that by default live inside it.
func (c *Config) SetLibraryPath(path string) {
	c.LibraryPath = path
	c.DBPath = filepath.Join(path, defaultDBFileName)
	c.SavedPassagesPath = filepath.Join(path, defaultSavedPassagesFileName)
}

// applyDerivedDefaults fills fields whose defaults depend on other
// fields, after the YAML merge may have changed those.
func (c *Config) applyDerivedDefaults() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.LibraryPath, defaultDBFileName)
	}
	if c.SavedPassagesPath == "" {
		c.SavedPassagesPath = filepath.Join(c.LibraryPath, defaultSavedPassagesFileName)
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = DefaultEmbeddingProvider
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = DefaultEmbeddingModel
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = DefaultOllamaBaseURL
	}
	if c.Embedding.APIKeyEnv == "" {
		c.Embedding.APIKeyEnv = DefaultOpenAIAPIKeyEnv
	}
}

// Validate rejects configurations that cannot produce valid passages.
func (c *Config) Validate() error {
	if c.LibraryPath == "" {
		return fmt.Errorf("library_path must not be empty")
	}
	if c.MinPassageLength <= 0 {
		return fmt.Errorf("min_passage_length must be positive, got %d", c.MinPassageLength)
	}
	if c.MaxPassageLength <= c.MinPassageLength {
		return fmt.Errorf("max_passage_length %d must exceed min_passage_length %d",
			c.MaxPassageLength, c.MinPassageLength)
	}
	if c.InitialBatchSize <= 0 || c.ProgressiveBatchSize <= 0 {
		return fmt.Errorf("indexing batch sizes must be positive")
	}
	if c.PDFTimeoutSeconds <= 0 {
		return fmt.Errorf("pdf_timeout_seconds must be positive, got %d", c.PDFTimeoutSeconds)
	}
	if c.ContextChars < 0 {
		return fmt.Errorf("context_chars must not be negative, got %d", c.ContextChars)
	}
	if c.SessionHistoryDays < 0 {
		return fmt.Errorf("session_history_days must not be negative, got %d", c.SessionHistoryDays)
	}
	return nil
}
