// Package extraction turns free text into structured candidate profiles and
// skill sets using a text generation model.
package extraction

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/skills"
	"github.com/spigell/resume-matcher/internal/utils"
)

var (
	//go:embed prompts/profile.md
	profilePrompt string
	//go:embed prompts/skills.md
	skillsPrompt string
	//go:embed prompts/feedback.md
	feedbackPrompt string
)

const defaultMaxLogLength = 200

// Params are the sampling parameters of a generation call.
type Params struct {
	MaxOutputTokens int     `mapstructure:"max-output-tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	TopP            float64 `mapstructure:"top-p"`
}

func (p Params) request(prompt string) ai.GenerateRequest {
	return ai.GenerateRequest{
		Prompt:          prompt,
		MaxOutputTokens: p.MaxOutputTokens,
		Temperature:     p.Temperature,
		TopP:            p.TopP,
	}
}

type Config struct {
	Extraction   Params `mapstructure:"extraction"`
	Feedback     Params `mapstructure:"feedback"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

func DefaultConfig() Config {
	return Config{
		Extraction:   Params{MaxOutputTokens: 1000, Temperature: 0.2, TopP: 0.9},
		Feedback:     Params{MaxOutputTokens: 1000, Temperature: 0.2, TopP: 0.5},
		MaxLogLength: defaultMaxLogLength,
	}
}

// Extractor builds prompts, calls the generator and parses its output.
type Extractor struct {
	generator ai.TextGenerator
	cfg       Config
	logger    *zap.Logger
}

func New(generator ai.TextGenerator, cfg Config, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}

	return &Extractor{generator: generator, cfg: cfg, logger: logger}
}

// Extract asks the model for the candidate profile row. Output without a
// usable row yields a failed profile rather than an error.
func (e *Extractor) Extract(ctx context.Context, text string) (Profile, error) {
	if strings.TrimSpace(text) == "" {
		return Profile{}, fmt.Errorf("extract profile: %w", ai.ErrEmptyInput)
	}

	raw, err := e.generate(ctx, "extract profile", e.cfg.Extraction.request(render(profilePrompt, "{{TEXT}}", text)))
	if err != nil {
		return Profile{}, err
	}

	profile := parseProfile(raw)
	if profile.Failed {
		e.logger.Warn("model output has no profile row",
			zap.String("reason", profile.Reason),
			zap.String("response_preview", utils.TruncateForLog(raw, e.cfg.MaxLogLength)),
		)
		return profile, nil
	}

	e.logger.Info("profile extracted",
		zap.String("name", profile.DisplayName()),
		zap.String("email", profile.Email.String()),
		zap.String("location", profile.Location.String()),
		zap.String("years_of_experience", profile.YearsOfExperience.String()),
		zap.Int("skills", profile.Skills.Len()),
	)

	return profile, nil
}

// ExtractSkills asks the model for the technical skills named in text.
func (e *Extractor) ExtractSkills(ctx context.Context, text string) (skills.Set, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("extract skills: %w", ai.ErrEmptyInput)
	}

	raw, err := e.generate(ctx, "extract skills", e.cfg.Extraction.request(render(skillsPrompt, "{{TEXT}}", text)))
	if err != nil {
		return nil, err
	}

	set, ok := parseSkillList(raw)
	if !ok {
		return nil, fmt.Errorf("extract skills: no skill list in %q: %w",
			utils.TruncateForLog(raw, e.cfg.MaxLogLength), ai.ErrMalformedResponse)
	}

	e.logger.Info("skills extracted", zap.Int("skills", set.Len()), zap.String("values", set.String()))
	return set, nil
}

// GenerateFeedback returns a short assessment of the candidate against the job.
func (e *Extractor) GenerateFeedback(ctx context.Context, candidateText, requirementText string) (string, error) {
	prompt := render(feedbackPrompt, "{{RESUME}}", candidateText, "{{JOB}}", requirementText)

	raw, err := e.generate(ctx, "generate feedback", e.cfg.Feedback.request(prompt))
	if err != nil {
		return "", err
	}

	return stripBlankLines(raw), nil
}

func (e *Extractor) generate(ctx context.Context, op string, req ai.GenerateRequest) (string, error) {
	e.logger.Debug("generate content request",
		zap.String("operation", op),
		zap.Int("prompt_length", utf8.RuneCountInString(req.Prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(req.Prompt, e.cfg.MaxLogLength)),
	)

	raw, err := e.generator.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	e.logger.Debug("generate content response",
		zap.String("operation", op),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.cfg.MaxLogLength)),
	)

	return raw, nil
}

// render substitutes placeholder/value pairs in a single pass.
func render(template string, pairs ...string) string {
	args := make([]string, len(pairs))
	for i, v := range pairs {
		if i%2 == 1 {
			v = strings.TrimSpace(v)
		}
		args[i] = v
	}
	return strings.NewReplacer(args...).Replace(template)
}

func stripBlankLines(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t\r"))
	}
	return strings.Join(kept, "\n")
}
