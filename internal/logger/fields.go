package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the model provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the model identifier.
	FieldModel = "ai_model"
	// FieldRun identifies one matching run.
	FieldRun = "run_id"
	// FieldRequirement identifies the job description of a run.
	FieldRequirement = "requirement_id"
	// FieldCandidate identifies a candidate document.
	FieldCandidate = "candidate_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describes the provider and model serving a call.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// WithRun tags logger with the run and requirement identifiers.
func WithRun(logger *zap.Logger, runID, requirementID string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldRun, Value: runID},
		StringField{Key: FieldRequirement, Value: requirementID},
	)...)
}

// WithCandidate tags logger with a candidate identifier.
func WithCandidate(logger *zap.Logger, candidateID string) *zap.Logger {
	return WithFields(logger, StringFields(StringField{Key: FieldCandidate, Value: candidateID})...)
}
