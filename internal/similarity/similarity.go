// Package similarity scores texts by the cosine similarity of their embeddings.
package similarity

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
)

// Similarity is a cosine similarity and its clamped percentage.
type Similarity struct {
	Raw     float64
	Percent float64
}

// Cosine returns the cosine similarity of a and b. Mismatched lengths and
// zero-norm vectors yield 0.
func Cosine(a, b ai.Embedding) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	v := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// Percent scales raw to a percentage clamped to [0, 100].
func Percent(raw float64) float64 {
	if math.IsNaN(raw) {
		return 0
	}
	return math.Max(0, math.Min(100, raw*100))
}

// Scorer embeds texts and compares them.
type Scorer struct {
	embedder ai.Embedder
	logger   *zap.Logger
}

func NewScorer(embedder ai.Embedder, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{embedder: embedder, logger: logger}
}

// Embed returns the embedding of text, or nil without a remote call when text
// is blank.
func (s *Scorer) Embed(ctx context.Context, text string) (ai.Embedding, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	return vec, nil
}

// Score compares two texts. A blank text on either side scores zero.
func (s *Scorer) Score(ctx context.Context, a, b string) (Similarity, error) {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return Similarity{}, nil
	}

	va, err := s.Embed(ctx, a)
	if err != nil {
		return Similarity{}, err
	}
	vb, err := s.Embed(ctx, b)
	if err != nil {
		return Similarity{}, err
	}

	return s.compare(va, vb), nil
}

// ScoreVector compares text against a precomputed reference embedding.
func (s *Scorer) ScoreVector(ctx context.Context, text string, reference ai.Embedding) (Similarity, error) {
	if len(reference) == 0 || strings.TrimSpace(text) == "" {
		return Similarity{}, nil
	}

	vec, err := s.Embed(ctx, text)
	if err != nil {
		return Similarity{}, err
	}

	return s.compare(vec, reference), nil
}

func (s *Scorer) compare(a, b ai.Embedding) Similarity {
	if len(a) != len(b) {
		s.logger.Warn("embedding dimensions differ", zap.Int("left", len(a)), zap.Int("right", len(b)))
	}
	raw := Cosine(a, b)
	return Similarity{Raw: raw, Percent: Percent(raw)}
}
