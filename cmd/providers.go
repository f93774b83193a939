package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/ai/bedrock"
	"github.com/spigell/resume-matcher/internal/ai/gemini"
	"github.com/spigell/resume-matcher/internal/ai/openai"
	"github.com/spigell/resume-matcher/internal/embedcache"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/retry"
	"github.com/spigell/resume-matcher/internal/secrets"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// buildProvider resolves credentials for the configured provider and returns
// it wrapped with the retry policy and, when enabled, the embedding cache.
// The returned closer releases the cache.
func buildProvider(ctx context.Context, config *Config, log *zap.Logger) (ai.Provider, io.Closer, error) {
	if err := secrets.LoadDotEnv(config.EnvFiles...); err != nil {
		return ai.Provider{}, nil, err
	}

	var (
		provider ai.Provider
		err      error
	)

	switch name := strings.ToLower(strings.TrimSpace(config.Provider)); name {
	case bedrock.ProviderName, "":
		provider, err = newBedrock(ctx, config.Bedrock)
	case gemini.ProviderName:
		provider, err = newGemini(ctx, config.Gemini)
	case openai.ProviderName:
		provider, err = newOpenAI(config.OpenAI)
	default:
		return ai.Provider{}, nil, fmt.Errorf("unknown provider %q (expected bedrock, gemini or openai)", config.Provider)
	}
	if err != nil {
		return ai.Provider{}, nil, err
	}

	log = logger.WithCommonFields(log, provider.Name, provider.Generator.Model())
	log.Debug("provider is ready", zap.String("embedding_model", provider.Embedder.Model()))

	provider = retry.Wrap(provider, config.Retry, log)

	if !config.Cache.Enabled {
		return provider, nopCloser{}, nil
	}

	store, err := embedcache.Open(config.Cache.Path)
	if err != nil {
		return ai.Provider{}, nil, err
	}
	provider.Embedder = embedcache.NewEmbedder(provider.Embedder, store, log)
	log.Debug("embedding cache enabled", zap.String("path", config.Cache.Path))

	return provider, store, nil
}

func newBedrock(ctx context.Context, c *BedrockConfig) (ai.Provider, error) {
	if c == nil {
		c = &BedrockConfig{}
	}

	sources := secrets.DefaultAWSSources()
	sources.AccessKeyID.Value, sources.AccessKeyID.File = c.AccessKeyID, c.AccessKeyIDFile
	sources.SecretAccessKey.Value, sources.SecretAccessKey.File = c.SecretAccessKey, c.SecretAccessKeyFile
	sources.Region.Value = c.Region
	sources.SessionToken.Value = c.SessionToken

	creds, err := secrets.LoadAWS(sources)
	if err != nil {
		return ai.Provider{}, err
	}

	return bedrock.New(ctx, bedrock.Config{
		Region:          creds.Region,
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
		TextModel:       c.TextModel,
		EmbeddingModel:  c.EmbeddingModel,
	})
}

func newGemini(ctx context.Context, c *GeminiConfig) (ai.Provider, error) {
	if c == nil {
		c = &GeminiConfig{}
	}

	key, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: c.APIKey,
		File:  c.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return ai.Provider{}, err
	}

	return gemini.New(ctx, gemini.Config{
		APIKey:         key,
		TextModel:      c.TextModel,
		EmbeddingModel: c.EmbeddingModel,
	})
}

func newOpenAI(c *OpenAIConfig) (ai.Provider, error) {
	if c == nil {
		c = &OpenAIConfig{}
	}

	key, err := secrets.Load(secrets.Source{
		Name:  "openai api key",
		Value: c.APIKey,
		File:  c.APIKeyFile,
		Env:   "OPENAI_API_KEY",
	})
	if err != nil {
		return ai.Provider{}, err
	}

	return openai.New(openai.Config{
		APIKey:         key,
		BaseURL:        c.BaseURL,
		TextModel:      c.TextModel,
		EmbeddingModel: c.EmbeddingModel,
	})
}
