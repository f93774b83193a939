package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/retry"
)

const (
	app       = "resume-matcher"
	envPrefix = "RESUME_MATCHER"
)

type Config struct {
	Provider string         `mapstructure:"provider"`
	EnvFiles []string       `mapstructure:"env-files"`
	Bedrock  *BedrockConfig `mapstructure:"bedrock"`
	Gemini   *GeminiConfig  `mapstructure:"gemini"`
	OpenAI   *OpenAIConfig  `mapstructure:"openai"`

	Retry      retry.Policy      `mapstructure:"retry"`
	Generation extraction.Config `mapstructure:"generation"`
	Matching   MatchingConfig    `mapstructure:"matching"`
	Skills     SkillsConfig      `mapstructure:"skills"`
	Cache      CacheConfig       `mapstructure:"cache"`
	Output     OutputConfig      `mapstructure:"output"`

	ExcludeFile string `mapstructure:"exclude-file"`
}

type BedrockConfig struct {
	Region              string `mapstructure:"region"`
	AccessKeyID         string `mapstructure:"access-key-id"`
	AccessKeyIDFile     string `mapstructure:"access-key-id-file"`
	SecretAccessKey     string `mapstructure:"secret-access-key"`
	SecretAccessKeyFile string `mapstructure:"secret-access-key-file"`
	SessionToken        string `mapstructure:"session-token"`
	TextModel           string `mapstructure:"text-model"`
	EmbeddingModel      string `mapstructure:"embedding-model"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	TextModel      string `mapstructure:"text-model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

type OpenAIConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	BaseURL        string `mapstructure:"base-url"`
	TextModel      string `mapstructure:"text-model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

type MatchingConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	RequestDelay time.Duration `mapstructure:"request-delay"`
	MinimumScore float64       `mapstructure:"minimum-score"`
	RankBy       string        `mapstructure:"rank-by"`
	Feedback     bool          `mapstructure:"feedback"`
}

type SkillsConfig struct {
	Required    []string           `mapstructure:"required"`
	Weights     map[string]float64 `mapstructure:"weights"`
	WeightsFile string             `mapstructure:"weights-file"`
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type OutputConfig struct {
	Dir     string   `mapstructure:"dir"`
	Formats []string `mapstructure:"formats"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-matcher scores resumes against job descriptions using LLM extraction and embeddings",
	}
)

// Execute executes the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("log-output", "stderr", "log destination: stdout, stderr or a file path")
	rootCmd.PersistentFlags().StringP("provider", "p", "", "model provider: bedrock, gemini or openai")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("log-output", rootCmd.PersistentFlags().Lookup("log-output"))
	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	policy := retry.DefaultPolicy()
	gen := extraction.DefaultConfig()

	v.SetDefault("provider", "bedrock")
	v.SetDefault("env-files", []string{".env"})
	v.SetDefault("retry.max-attempts", policy.MaxAttempts)
	v.SetDefault("retry.base-delay", policy.BaseDelay)
	v.SetDefault("generation.extraction.max-output-tokens", gen.Extraction.MaxOutputTokens)
	v.SetDefault("generation.extraction.temperature", gen.Extraction.Temperature)
	v.SetDefault("generation.extraction.top-p", gen.Extraction.TopP)
	v.SetDefault("generation.feedback.max-output-tokens", gen.Feedback.MaxOutputTokens)
	v.SetDefault("generation.feedback.temperature", gen.Feedback.Temperature)
	v.SetDefault("generation.feedback.top-p", gen.Feedback.TopP)
	v.SetDefault("generation.max-log-length", gen.MaxLogLength)
	v.SetDefault("matching.concurrency", 10)
	v.SetDefault("matching.minimum-score", 70.0)
	v.SetDefault("matching.rank-by", "embedding")
	v.SetDefault("cache.path", ".resume-matcher-cache.db")
	v.SetDefault("output.dir", "reports")
	v.SetDefault("output.formats", []string{"csv", "xlsx", "zip"})

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional; defaults, env and flags are enough.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: viper.GetString("log-output"),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}
