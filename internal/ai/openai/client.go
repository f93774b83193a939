// Package openai implements text generation and embeddings against
// OpenAI-compatible endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/spigell/resume-matcher/internal/ai"
)

const (
	ProviderName = "openai"

	defaultModel          = goopenai.GPT4oMini
	defaultEmbeddingModel = goopenai.SmallEmbedding3
)

type clientAPI interface {
	CreateChatCompletion(ctx context.Context, request goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error)
}

type Config struct {
	APIKey         string `mapstructure:"api-key"`
	BaseURL        string `mapstructure:"base-url"`
	TextModel      string `mapstructure:"text-model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

// New builds a provider. BaseURL points it at compatible servers such as Ollama.
func New(cfg Config) (ai.Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return ai.Provider{}, errors.New("openai api key is required")
	}

	config := goopenai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		config.BaseURL = baseURL
	}
	client := goopenai.NewClientWithConfig(config)

	return ai.Provider{
		Name:      ProviderName,
		Generator: NewGenerator(client, cfg.TextModel),
		Embedder:  NewEmbedder(client, cfg.EmbeddingModel),
	}, nil
}

type Generator struct {
	client clientAPI
	model  string
}

func NewGenerator(client clientAPI, model string) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Generator{client: client, model: model}
}

func (g *Generator) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   req.MaxOutputTokens,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
	})
	if err != nil {
		return "", classify("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices: %w", ai.ErrMalformedResponse)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *Generator) Model() string {
	return g.model
}

type Embedder struct {
	client clientAPI
	model  string
}

func NewEmbedder(client clientAPI, model string) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = string(defaultEmbeddingModel)
	}
	return &Embedder{client: client, model: model}
}

func (e *Embedder) Embed(ctx context.Context, text string) (ai.Embedding, error) {
	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, classify("create embeddings", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding data: %w", ai.ErrMalformedResponse)
	}
	return ai.Embedding(resp.Data[0].Embedding), nil
}

func (e *Embedder) Model() string {
	return e.model
}

func classify(op string, err error) error {
	code := 0

	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		code = reqErr.HTTPStatusCode
	}

	switch {
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return ai.Transient(op, err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ai.Authentication(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
