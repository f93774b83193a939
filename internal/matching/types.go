package matching

import (
	"fmt"
	"time"

	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/skills"
)

// Candidate is one document to score.
type Candidate struct {
	ID   string
	Name string
	Path string
	Text string
}

// Requirement is the job description candidates are matched against. When
// Skills is empty it is extracted from Text once per run.
type Requirement struct {
	ID      string
	Name    string
	Text    string
	Skills  skills.Set
	Weights skills.Weights
}

type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Scores are finite percentages in [0, 100], except Cosine which stays in [-1, 1].
type Scores struct {
	Skill     float64
	Embedding float64
	Cosine    float64
	// Weighted is nil unless the requirement carried weights.
	Weighted *float64
}

// Result is the outcome for a single candidate. Scores is nil for failed results.
type Result struct {
	Candidate Candidate
	Profile   extraction.Profile
	Scores    *Scores
	Matched   []string
	Missing   []string
	Skills    []string
	Feedback  string
	State     State
	Err       error
	Duration  time.Duration
}

func (r Result) Failed() bool {
	return r.State == StateFailed
}

// Progress counts finished tasks of a run.
type Progress struct {
	Completed int
	Total     int
	Failed    int
}

// TaskError marks a candidate that could not be scored.
type TaskError struct {
	CandidateID string
	Stage       string
	Err         error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("candidate %s: %s: %v", e.CandidateID, e.Stage, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// RankBy selects the score used for ordering and selection.
type RankBy string

const (
	RankEmbedding RankBy = "embedding"
	RankSkills    RankBy = "skills"
	RankWeighted  RankBy = "weighted"
)

func ParseRankBy(s string) (RankBy, error) {
	switch r := RankBy(s); r {
	case "":
		return RankEmbedding, nil
	case RankEmbedding, RankSkills, RankWeighted:
		return r, nil
	default:
		return "", fmt.Errorf("unknown rank key %q (expected embedding, skills or weighted)", s)
	}
}

// Report is the ranked outcome of one run against one requirement.
type Report struct {
	RunID       string
	Requirement Requirement
	RankBy      RankBy
	All         []Result
	Selected    []Result
	Progress    Progress
}
