// Package gemini implements text generation and embeddings on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/spigell/resume-matcher/internal/ai"
)

const (
	ProviderName = "gemini"

	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-004"
)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type Config struct {
	APIKey         string `mapstructure:"api-key"`
	TextModel      string `mapstructure:"text-model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

// New creates a provider backed by one genai client.
func New(ctx context.Context, cfg Config) (ai.Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return ai.Provider{}, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return ai.Provider{}, fmt.Errorf("create genai client: %w", err)
	}

	return ai.Provider{
		Name:      ProviderName,
		Generator: NewGenerator(client.Models, cfg.TextModel),
		Embedder:  NewEmbedder(client.Models, cfg.EmbeddingModel),
	}, nil
}

// Generator sends prompts to Gemini and returns the joined text parts.
type Generator struct {
	models    modelsAPI
	modelName string
}

func NewGenerator(models modelsAPI, model string) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Generator{models: models, modelName: model}
}

func (g *Generator) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("generate content: %w", ai.ErrEmptyInput)
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
		TopP:        genai.Ptr(float32(req.TopP)),
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", classify("generate content", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

// Embedder returns Gemini text embeddings.
type Embedder struct {
	models    modelsAPI
	modelName string
}

func NewEmbedder(models modelsAPI, model string) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbeddingModel
	}
	return &Embedder{models: models, modelName: model}
}

func (e *Embedder) Embed(ctx context.Context, text string) (ai.Embedding, error) {
	resp, err := e.models.EmbedContent(ctx, e.modelName, genai.Text(text), nil)
	if err != nil {
		return nil, classify("embed content", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini returned an empty embedding: %w", ai.ErrMalformedResponse)
	}

	return ai.Embedding(resp.Embeddings[0].Values), nil
}

func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.modelName
}

// classify maps genai API status codes onto the ai error categories.
func classify(op string, err error) error {
	code := 0

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	}

	switch {
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return ai.Transient(op, err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ai.Authentication(op, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
