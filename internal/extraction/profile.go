package extraction

import (
	"strings"

	"github.com/spigell/resume-matcher/internal/skills"
)

const (
	// NotFound renders an attribute the model could not locate.
	NotFound = "Not Found"
	// UnknownName renders a candidate whose name could not be located.
	UnknownName = "Unable to Fetch"
)

// Field is an optional profile attribute.
type Field struct {
	Value string
	Found bool
}

// NewField treats blank cells and the model's "not found" markers as absent.
func NewField(raw string) Field {
	value := strings.TrimSpace(raw)
	if isAbsent(value) {
		return Field{}
	}
	return Field{Value: value, Found: true}
}

// Or returns the value, or placeholder when the field is absent.
func (f Field) Or(placeholder string) string {
	if !f.Found {
		return placeholder
	}
	return f.Value
}

func (f Field) String() string {
	return f.Or(NotFound)
}

// Profile holds the structured attributes extracted from a candidate document.
type Profile struct {
	Name              Field
	Email             Field
	Location          Field
	YearsOfExperience Field
	Skills            skills.Set

	// Failed is set when the model output did not contain a usable row.
	Failed bool
	Reason string
}

// DisplayName returns the candidate name or the unknown-name placeholder.
func (p Profile) DisplayName() string {
	return p.Name.Or(UnknownName)
}

func failedProfile(reason string) Profile {
	return Profile{Skills: skills.NewSet(), Failed: true, Reason: reason}
}

var absentMarkers = []string{"didn't found", "didnt found", "not found", "n/a"}

func isAbsent(value string) bool {
	if value == "" {
		return true
	}
	lower := strings.ToLower(value)
	for _, marker := range absentMarkers {
		if lower == marker {
			return true
		}
	}
	return false
}
