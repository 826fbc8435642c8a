package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	Model     string
	BaseURL   string // Ollama only
	APIKey    string // OpenAI only
	CacheSize int
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cache)
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. PASSAGE_EMBEDDING_PROVIDER (openai, ollama, local)
// 2. OPENAI_API_KEY present selects openai
// 3. Default to local
func NewFromEnv() (Embedder, error) {
	cache := NewCache(10000) // Default cache size

	if provider := os.Getenv("PASSAGE_EMBEDDING_PROVIDER"); provider != "" {
		switch strings.ToLower(provider) {
		case ProviderOpenAI:
			return NewOpenAIProvider("", "", cache)
		case ProviderOllama:
			return NewOllamaProvider(os.Getenv("OLLAMA_BASE_URL"), os.Getenv("PASSAGE_EMBEDDING_MODEL"), cache)
		case ProviderLocal:
			return NewLocalProvider(cache)
		default:
			return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, provider)
		}
	}

	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return NewOpenAIProvider("", "", cache)
	}

	return NewLocalProvider(cache)
}
