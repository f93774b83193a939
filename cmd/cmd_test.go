package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredSkillsMergesSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("required: [docker]\nweights:\n  go: 3\n"), 0o600))

	set, weights, err := requiredSkills(SkillsConfig{
		Required:    []string{"Python, SQL"},
		Weights:     map[string]float64{"Kubernetes": 2},
		WeightsFile: path,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"docker", "go", "kubernetes", "python", "sql"}, set.Sorted())
	assert.Equal(t, 3.0, weights["go"])
	assert.Equal(t, 2.0, weights["kubernetes"])
}

func TestRequiredSkillsEmptyMeansExtraction(t *testing.T) {
	set, weights, err := requiredSkills(SkillsConfig{})
	require.NoError(t, err)
	assert.Nil(t, set)
	assert.Nil(t, weights)
}

func TestConfigDefaultsAndFile(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
provider: gemini
gemini:
  text-model: gemini-2.0-flash
matching:
  request-delay: 2s
  rank-by: skills
`)))

	var config *Config
	require.NoError(t, v.Unmarshal(&config))

	assert.Equal(t, "gemini", config.Provider)
	assert.Equal(t, "gemini-2.0-flash", config.Gemini.TextModel)
	assert.Equal(t, 2*time.Second, config.Matching.RequestDelay)
	assert.Equal(t, "skills", config.Matching.RankBy)
	assert.Equal(t, 70.0, config.Matching.MinimumScore)
	assert.Equal(t, 10, config.Matching.Concurrency)
	assert.Equal(t, 3, config.Retry.MaxAttempts)
	assert.Equal(t, time.Second, config.Retry.BaseDelay)
	assert.Equal(t, 1000, config.Generation.Extraction.MaxOutputTokens)
	assert.Equal(t, []string{"csv", "xlsx", "zip"}, config.Output.Formats)
}

func TestRequiredSkillsIgnoresEmptyWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("required: [python]\nweights:\n  python: 0\n"), 0o600))

	set, weights, err := requiredSkills(SkillsConfig{WeightsFile: path, Weights: map[string]float64{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"python"}, set.Sorted())
	assert.Nil(t, weights)
}
