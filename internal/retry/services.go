package retry

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
)

// Generator decorates an ai.TextGenerator with the retry policy.
type Generator struct {
	next   ai.TextGenerator
	policy Policy
	logger *zap.Logger
}

func NewGenerator(next ai.TextGenerator, policy Policy, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{next: next, policy: policy, logger: logger}
}

func (g *Generator) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	return Do(ctx, g.policy, g.logger, "generate", func(ctx context.Context) (string, error) {
		return g.next.Generate(ctx, req)
	})
}

func (g *Generator) Model() string {
	return g.next.Model()
}

// Embedder decorates an ai.Embedder with the retry policy.
type Embedder struct {
	next   ai.Embedder
	policy Policy
	logger *zap.Logger
}

func NewEmbedder(next ai.Embedder, policy Policy, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{next: next, policy: policy, logger: logger}
}

func (e *Embedder) Embed(ctx context.Context, text string) (ai.Embedding, error) {
	return Do(ctx, e.policy, e.logger, "embed", func(ctx context.Context) (ai.Embedding, error) {
		return e.next.Embed(ctx, text)
	})
}

func (e *Embedder) Model() string {
	return e.next.Model()
}

// Wrap decorates both halves of a provider. A nil embedder stays nil.
func Wrap(p ai.Provider, policy Policy, logger *zap.Logger) ai.Provider {
	wrapped := ai.Provider{Name: p.Name}
	if p.Generator != nil {
		wrapped.Generator = NewGenerator(p.Generator, policy, logger)
	}
	if p.Embedder != nil {
		wrapped.Embedder = NewEmbedder(p.Embedder, policy, logger)
	}
	return wrapped
}
