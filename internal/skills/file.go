package skills

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// File is a curated requirement skill list with optional weights.
//
//	required: [python, aws]
//	weights:
//	  python: 2
//	  aws: "1.5"
type File struct {
	Required []string           `mapstructure:"required"`
	Weights  map[string]float64 `mapstructure:"weights"`
}

// LoadFile reads a YAML skills file. Weights may be numbers or numeric strings.
func LoadFile(path string) (Set, Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read skills file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse skills file %s: %w", path, err)
	}

	var file File
	if err := mapstructure.WeakDecode(raw, &file); err != nil {
		return nil, nil, fmt.Errorf("decode skills file %s: %w", path, err)
	}

	required := NewSet(file.Required...)
	weights := NormalizeWeights(file.Weights)

	// Weighted skills are required even when not listed explicitly.
	for skill := range weights {
		required.Add(skill)
	}

	return required, weights, nil
}
