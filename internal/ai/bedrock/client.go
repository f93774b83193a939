// Package bedrock implements text generation and embeddings on Amazon Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"github.com/spigell/resume-matcher/internal/ai"
)

const (
	ProviderName = "bedrock"

	DefaultTextModel      = "anthropic.claude-v2"
	DefaultEmbeddingModel = "amazon.titan-embed-text-v1"

	contentType       = "application/json"
	anthropicVersion  = "bedrock-2023-05-31"
	messagesAPIPrefix = "anthropic.claude-3"
)

type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type Config struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access-key-id"`
	SecretAccessKey string `mapstructure:"secret-access-key"`
	SessionToken    string `mapstructure:"session-token"`
	TextModel       string `mapstructure:"text-model"`
	EmbeddingModel  string `mapstructure:"embedding-model"`
}

// New builds a provider sharing one Bedrock runtime client. The SDK retryer
// is limited to a single attempt so the caller's retry policy applies alone.
func New(ctx context.Context, cfg Config) (ai.Provider, error) {
	if strings.TrimSpace(cfg.AccessKeyID) == "" || strings.TrimSpace(cfg.SecretAccessKey) == "" || strings.TrimSpace(cfg.Region) == "" {
		return ai.Provider{}, errors.New("bedrock requires access key id, secret access key and region")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(strings.TrimSpace(cfg.Region)),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			strings.TrimSpace(cfg.AccessKeyID),
			strings.TrimSpace(cfg.SecretAccessKey),
			strings.TrimSpace(cfg.SessionToken),
		)),
		config.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return ai.Provider{}, fmt.Errorf("load aws config: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg)

	return ai.Provider{
		Name:      ProviderName,
		Generator: NewGenerator(client, cfg.TextModel),
		Embedder:  NewEmbedder(client, cfg.EmbeddingModel),
	}, nil
}

// Generator completes prompts with an Anthropic model hosted on Bedrock.
type Generator struct {
	api   invoker
	model string
}

func NewGenerator(api invoker, model string) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultTextModel
	}
	return &Generator{api: api, model: model}
}

type completionRequest struct {
	Prompt            string  `json:"prompt"`
	MaxTokensToSample int     `json:"max_tokens_to_sample"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
}

type completionResponse struct {
	Completion string `json:"completion"`
}

type messagesRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (g *Generator) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	if g.usesMessagesAPI() {
		return g.generateMessages(ctx, req)
	}

	body, err := json.Marshal(completionRequest{
		Prompt:            fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", strings.TrimSpace(req.Prompt)),
		MaxTokensToSample: req.MaxOutputTokens,
		Temperature:       req.Temperature,
		TopP:              req.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	raw, err := invoke(ctx, g.api, g.model, body)
	if err != nil {
		return "", err
	}

	var resp completionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode completion response: %v: %w", err, ai.ErrMalformedResponse)
	}
	return strings.TrimSpace(resp.Completion), nil
}

func (g *Generator) generateMessages(ctx context.Context, req ai.GenerateRequest) (string, error) {
	body, err := json.Marshal(messagesRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        req.MaxOutputTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		Messages:         []message{{Role: "user", Content: strings.TrimSpace(req.Prompt)}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal messages request: %w", err)
	}

	raw, err := invoke(ctx, g.api, g.model, body)
	if err != nil {
		return "", err
	}

	var resp messagesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode messages response: %v: %w", err, ai.ErrMalformedResponse)
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" || strings.TrimSpace(block.Text) == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(strings.TrimSpace(block.Text))
	}
	return builder.String(), nil
}

func (g *Generator) usesMessagesAPI() bool {
	return strings.HasPrefix(g.model, messagesAPIPrefix)
}

func (g *Generator) Model() string {
	return g.model
}

// Embedder produces Titan text embeddings.
type Embedder struct {
	api   invoker
	model string
}

func NewEmbedder(api invoker, model string) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{api: api, model: model}
}

type embeddingRequest struct {
	InputText string `json:"inputText"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *Embedder) Embed(ctx context.Context, text string) (ai.Embedding, error) {
	body, err := json.Marshal(embeddingRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	raw, err := invoke(ctx, e.api, e.model, body)
	if err != nil {
		return nil, err
	}

	var resp embeddingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode embedding response: %v: %w", err, ai.ErrMalformedResponse)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("bedrock returned an empty embedding: %w", ai.ErrMalformedResponse)
	}
	return ai.Embedding(resp.Embedding), nil
}

func (e *Embedder) Model() string {
	return e.model
}

func invoke(ctx context.Context, api invoker, model string, body []byte) ([]byte, error) {
	out, err := api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String(contentType),
		Accept:      aws.String(contentType),
	})
	if err != nil {
		return nil, classify("invoke "+model, err)
	}
	return out.Body, nil
}

var (
	transientCodes = map[string]struct{}{
		"ThrottlingException":         {},
		"TooManyRequestsException":    {},
		"ServiceUnavailableException": {},
		"ModelTimeoutException":       {},
		"ModelNotReadyException":      {},
		"InternalServerException":     {},
	}
	authCodes = map[string]struct{}{
		"AccessDeniedException":               {},
		"UnrecognizedClientException":         {},
		"InvalidSignatureException":           {},
		"ExpiredTokenException":               {},
		"MissingAuthenticationTokenException": {},
	}
)

// classify maps SDK errors onto the ai error categories.
func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := transientCodes[apiErr.ErrorCode()]; ok {
			return ai.Transient(op, err)
		}
		if _, ok := authCodes[apiErr.ErrorCode()]; ok {
			return ai.Authentication(op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ai.Transient(op, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
