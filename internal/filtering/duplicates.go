package filtering

import (
	"context"
	"crypto/sha256"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/matching"
)

type duplicatesFilter struct {
	enabled bool
	reason  string
}

// NewDuplicates creates a filter that keeps the first of several candidates
// with identical text. Whitespace and case differences are ignored.
func NewDuplicates() Filter {
	return &duplicatesFilter{enabled: true}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *duplicatesFilter) IsEnabled() bool { return f.enabled }

func (f *duplicatesFilter) Validate(*Config) error { return nil }

func (f *duplicatesFilter) Apply(_ context.Context, deps Deps, candidates []matching.Candidate) ([]matching.Candidate, Step, error) {
	initial := len(candidates)
	seen := make(map[[sha256.Size]byte]string, initial)
	kept := make([]matching.Candidate, 0, initial)
	var dropped []string

	for _, c := range candidates {
		// Empty documents are kept so the matcher reports them as failed.
		if strings.TrimSpace(c.Text) == "" {
			kept = append(kept, c)
			continue
		}

		sum := sha256.Sum256([]byte(strings.ToLower(strings.Join(strings.Fields(c.Text), " "))))
		if first, ok := seen[sum]; ok {
			dropped = append(dropped, c.ID)
			deps.Logger.Debug("duplicate candidate", zap.String("candidate_id", c.ID), zap.String("duplicate_of", first))
			continue
		}
		seen[sum] = c.ID
		kept = append(kept, c)
	}

	if len(dropped) > 0 {
		deps.Logger.Info("excluding duplicate candidates",
			zap.Strings("excluded_candidates", dropped),
			zap.Int("candidates_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *duplicatesFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason}
}
