package llm

import (
	"context"
)

type LLMClient interface {
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)
}

type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerateOptions are applied by each provider as far as its API allows.
type GenerateOptions struct {
	System      string
	JSON        bool
	Temperature *float32
	MaxTokens   int
}

type GenerateOption func(*GenerateOptions)

func WithSystem(system string) GenerateOption {
	return func(o *GenerateOptions) { o.System = system }
}

// WithJSON asks the provider for a JSON object response.
func WithJSON() GenerateOption {
	return func(o *GenerateOptions) { o.JSON = true }
}

func WithTemperature(t float32) GenerateOption {
	return func(o *GenerateOptions) { o.Temperature = &t }
}

func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) { o.MaxTokens = n }
}

func applyOptions(opts []GenerateOption) GenerateOptions {
	o := GenerateOptions{MaxTokens: 1000}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
