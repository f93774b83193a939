package filtering

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/matching"
)

type excludeFileFilter struct {
	path     string
	patterns []string
}

// NewExcludeFile creates a filter that removes candidates listed in an exclude
// file. Each non-comment line is a candidate ID or a glob matched against the
// candidate name and path.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	if f.path == "" {
		return nil
	}

	patterns, err := readPatterns(f.path)
	if err != nil {
		return fmt.Errorf("reading exclude file: %w", err)
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid pattern %q in %s", p, f.path)
		}
	}
	f.patterns = patterns
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, candidates []matching.Candidate) ([]matching.Candidate, Step, error) {
	initial := len(candidates)
	if len(f.patterns) == 0 {
		return candidates, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept := make([]matching.Candidate, 0, initial)
	var removed []string
	for _, c := range candidates {
		if f.excluded(c) {
			removed = append(removed, c.ID)
			continue
		}
		kept = append(kept, c)
	}

	if len(removed) > 0 {
		deps.Logger.Info("excluding candidates based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_candidates", removed),
			zap.Int("candidates_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(removed), Left: len(kept)}, nil
}

func (f *excludeFileFilter) excluded(c matching.Candidate) bool {
	for _, p := range f.patterns {
		if p == c.ID {
			return true
		}
		for _, target := range []string{c.Name, filepath.ToSlash(c.Path)} {
			if target == "" {
				continue
			}
			if ok, _ := doublestar.Match(p, target); ok {
				return true
			}
		}
	}
	return false
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

func readPatterns(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}
