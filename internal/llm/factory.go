package llm

import (
	"fmt"
	"os"

	"github.com/hfarouk/docdex/internal/config"
)

// NewProvider creates the LLM provider selected by the configuration,
// wrapped with the configured rate limit when one is set.
func NewProvider(cfg *config.Config) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		p = NewOpenAIProvider(apiKey, cfg.Model, cfg.BaseURL, "openai")

	case config.ProviderMistral:
		apiKey := os.Getenv("MISTRAL_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("MISTRAL_API_KEY environment variable is not set")
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.mistral.ai/v1"
		}
		p = NewOpenAIProvider(apiKey, cfg.Model, baseURL, "mistral")

	case config.ProviderOllama:
		host := cfg.BaseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		p = NewOllamaProvider(host, cfg.Model)

	default:
		err = fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerMin > 0 {
		p = NewRateLimitedProvider(p, cfg.RequestsPerMin)
	}
	return p, nil
}
