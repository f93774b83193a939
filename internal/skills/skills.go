// Package skills reconciles candidate skills against requirement skills.
package skills

import (
	"math"
	"sort"
	"strings"
)

// DefaultWeight applies to requirement skills without an explicit weight.
const DefaultWeight = 1.0

// Set is a lowercase, de-duplicated collection of skills.
type Set map[string]struct{}

// Normalize lowercases and trims a skill, stripping surrounding quotes.
func Normalize(skill string) string {
	skill = strings.TrimSpace(skill)
	skill = strings.Trim(skill, `'"`+"`")
	return strings.ToLower(strings.TrimSpace(skill))
}

// NewSet builds a Set from raw skill names. Empty names are dropped.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Parse splits a comma separated list into a Set.
func Parse(list string) Set {
	return NewSet(strings.Split(list, ",")...)
}

func (s Set) Add(skill string) {
	if n := Normalize(skill); n != "" {
		s[n] = struct{}{}
	}
}

func (s Set) Has(skill string) bool {
	_, ok := s[Normalize(skill)]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Sorted returns the skills in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for skill := range s {
		out = append(out, skill)
	}
	sort.Strings(out)
	return out
}

func (s Set) String() string {
	return strings.Join(s.Sorted(), ", ")
}

// Intersect returns skills present in both sets.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for skill := range s {
		if _, ok := other[skill]; ok {
			out[skill] = struct{}{}
		}
	}
	return out
}

// Difference returns skills in s that are missing from other.
func (s Set) Difference(other Set) Set {
	out := make(Set)
	for skill := range s {
		if _, ok := other[skill]; !ok {
			out[skill] = struct{}{}
		}
	}
	return out
}

// Weights maps a requirement skill to its importance.
type Weights map[string]float64

// NormalizeWeights lowercases keys and drops non-positive or non-finite
// weights. It returns nil when no usable weight remains.
func NormalizeWeights(raw map[string]float64) Weights {
	if len(raw) == 0 {
		return nil
	}
	out := make(Weights, len(raw))
	for skill, w := range raw {
		key := Normalize(skill)
		if key == "" || w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			continue
		}
		out[key] = w
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (w Weights) weight(skill string) float64 {
	if v, ok := w[skill]; ok {
		return v
	}
	return DefaultWeight
}

// Reconciliation is the outcome of comparing two skill sets.
type Reconciliation struct {
	Matched Set
	Missing Set
	// Score is 100*|matched|/|requirement|, or 0 for an empty requirement.
	Score float64
	// Weighted is nil unless weights were supplied.
	Weighted *float64
}

// Reconcile compares candidate skills against requirement skills. Weighted
// scoring is computed only when weights is non-nil.
func Reconcile(candidate, requirement Set, weights Weights) Reconciliation {
	matched := requirement.Intersect(candidate)
	missing := requirement.Difference(candidate)

	result := Reconciliation{
		Matched: matched,
		Missing: missing,
	}

	if requirement.Len() > 0 {
		result.Score = 100 * float64(matched.Len()) / float64(requirement.Len())
	}

	if weights != nil {
		var total, hit float64
		for skill := range requirement {
			w := weights.weight(skill)
			total += w
			if _, ok := matched[skill]; ok {
				hit += w
			}
		}

		weighted := 0.0
		if total > 0 {
			weighted = 100 * hit / total
		}
		result.Weighted = &weighted
	}

	return result
}

// Round2 rounds to two decimal places for presentation.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
