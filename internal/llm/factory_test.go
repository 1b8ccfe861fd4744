package llm

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/catalog-dedupe/internal/config"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key disables clients", func(t *testing.T) {
		judge, embedder, err := NewClient(ctx, config.LLMConfig{Provider: "openai"}, zerolog.Nop())
		require.NoError(t, err)
		assert.Nil(t, judge)
		assert.Nil(t, embedder)
	})

	t.Run("openai", func(t *testing.T) {
		judge, embedder, err := NewClient(ctx, config.LLMConfig{Provider: "OpenAI", APIKey: "sk-test", Model: "gpt-4o-mini", EmbeddingDimensions: 1024}, zerolog.Nop())
		require.NoError(t, err)
		require.IsType(t, &OpenAIClient{}, judge)
		assert.Equal(t, judge, embedder)
		assert.Equal(t, 1024, judge.(*OpenAIClient).dimensions)
		assert.Equal(t, DefaultEmbeddingModel, judge.(*OpenAIClient).embeddingModel)
	})

	t.Run("claude has no embedder", func(t *testing.T) {
		judge, embedder, err := NewClient(ctx, config.LLMConfig{Provider: "claude", APIKey: "key"}, zerolog.Nop())
		require.NoError(t, err)
		assert.IsType(t, &ClaudeClient{}, judge)
		assert.Nil(t, embedder)
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		judge, embedder, err := NewClient(ctx, config.LLMConfig{Provider: "ollama", Model: "llama3", EmbeddingModel: "nomic-embed-text"}, zerolog.Nop())
		require.NoError(t, err)
		require.IsType(t, &OpenAIClient{}, judge)
		assert.NotNil(t, embedder)
		assert.Equal(t, 0, judge.(*OpenAIClient).dimensions)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, _, err := NewClient(ctx, config.LLMConfig{Provider: "watson", APIKey: "key"}, zerolog.Nop())
		assert.ErrorContains(t, err, "unsupported llm provider")
	})
}

func TestApplyOptions(t *testing.T) {
	o := applyOptions([]GenerateOption{WithSystem("sys"), WithJSON(), WithTemperature(0.1)})

	assert.Equal(t, "sys", o.System)
	assert.True(t, o.JSON)
	require.NotNil(t, o.Temperature)
	assert.InDelta(t, 0.1, *o.Temperature, 1e-6)
	assert.Equal(t, 1000, o.MaxTokens)
}
