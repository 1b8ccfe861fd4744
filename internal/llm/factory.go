package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agenthands/catalog-dedupe/internal/config"
)

// NewClient builds the judge and embedder for the configured provider.
// Hosted providers without an API key yield nil clients: the service then
// runs with validation and description search disabled instead of failing.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger zerolog.Logger) (LLMClient, EmbedderClient, error) {
	provider := strings.ToLower(cfg.Provider)

	if cfg.APIKey == "" && provider != "ollama" {
		logger.Warn().Str("provider", provider).Msg("no LLM API key configured, judge and embedder disabled")
		return nil, nil, nil
	}

	switch provider {
	case "openai":
		c := NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.EmbeddingModel, cfg.EmbeddingDimensions, cfg.BaseURL)
		return c, c, nil

	case "gemini":
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil

	case "claude":
		c := NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
		logger.Warn().Msg("claude provides no embeddings, description search disabled")
		return c, nil, nil

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}

		logger.Info().Str("base_url", baseURL).Msg("using Ollama through its OpenAI-compatible API")

		// Ollama ignores the key but the client requires one.
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}

		// Ollama models have a fixed output size; requesting dimensions is an error there.
		c := NewOpenAIClient(apiKey, cfg.Model, cfg.EmbeddingModel, 0, baseURL)
		return c, c, nil

	default:
		return nil, nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
