package ai

import (
	"context"
)

// Embedding is a fixed-dimension vector produced by an embedding model.
type Embedding []float32

// GenerateRequest carries a single prompt-completion call.
type GenerateRequest struct {
	Prompt          string
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
}

// TextGenerator completes prompts with a remote language model.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Model() string
}

// Embedder turns non-empty text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (Embedding, error)
	Model() string
}

// Provider bundles the generator and embedder built for one credential set.
type Provider struct {
	Name      string
	Generator TextGenerator
	Embedder  Embedder
}
