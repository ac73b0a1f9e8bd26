package embedding

import (
	"context"
	"fmt"

	"sentio/internal/config"
)

// Embedding is the interface every embedding model client implements.
type Embedding interface {
	// Embed generates the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for a batch of texts, one
	// vector per input in the same order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// NewModel creates an embedding model client for the configured provider.
// The provider is selected once here; callers only see the Embedding
// interface afterwards.
func NewModel(cfg config.EmbeddingConfig) (Embedding, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIModel(cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	case "ollama":
		return NewOllamaModel(cfg.Ollama.Model, cfg.Ollama.BaseURL)
	case "gemini":
		return NewGeminiModel(cfg.Gemini.Model, cfg.Gemini.APIKey)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
