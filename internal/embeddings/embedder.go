// Package embeddings turns text into unit-normalized vectors. Every
// embedder re-normalizes provider output so inner products downstream
// are cosine similarities regardless of what the API returned.
package embeddings

import (
	"context"
	"fmt"
	"math"

	"github.com/hfarouk/docdex/internal/config"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts. Results are
	// unit-normalized and parallel to the input.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// New builds the embedder selected by the configuration.
func New(cfg *config.Config, apiKey string) (Embedder, error) {
	switch cfg.EmbedProvider {
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(apiKey, cfg.EmbedModel, cfg.BaseURL), nil
	case config.ProviderMistral:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.mistral.ai/v1"
		}
		return NewOpenAIEmbedder(apiKey, cfg.EmbedModel, baseURL), nil
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg.EmbedModel, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbedProvider)
	}
}

// normalize scales v to unit length in place and returns it. Zero
// vectors come back unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
