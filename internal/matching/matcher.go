// Package matching scores a batch of candidates against a requirement
// concurrently and assembles a ranked report.
package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/similarity"
	"github.com/spigell/resume-matcher/internal/skills"
	"github.com/spigell/resume-matcher/internal/utils"
)

const DefaultConcurrency = 10

var wait = utils.WaitFor

type extractor interface {
	Extract(ctx context.Context, text string) (extraction.Profile, error)
	ExtractSkills(ctx context.Context, text string) (skills.Set, error)
	GenerateFeedback(ctx context.Context, candidateText, requirementText string) (string, error)
}

type scorer interface {
	Embed(ctx context.Context, text string) (ai.Embedding, error)
	ScoreVector(ctx context.Context, text string, reference ai.Embedding) (similarity.Similarity, error)
}

type Options struct {
	Concurrency  int           `mapstructure:"concurrency"`
	RequestDelay time.Duration `mapstructure:"request-delay"`
	MinimumScore float64       `mapstructure:"minimum-score"`
	RankBy       RankBy        `mapstructure:"rank-by"`
	Feedback     bool          `mapstructure:"feedback"`

	// OnProgress is called from the aggregating goroutine after every task.
	OnProgress func(Progress) `mapstructure:"-"`
}

type Matcher struct {
	extractor extractor
	scorer    scorer
	opts      Options
	logger    *zap.Logger
	newRunID  func() string
}

func NewMatcher(ext extractor, sc scorer, opts Options, log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.RankBy == "" {
		opts.RankBy = RankEmbedding
	}

	return &Matcher{
		extractor: ext,
		scorer:    sc,
		opts:      opts,
		logger:    log,
		newRunID:  uuid.NewString,
	}
}

// Run scores every candidate against requirement. Per-candidate failures are
// recorded in the report; requirement failures, authentication errors and
// cancellation abort the run.
func (m *Matcher) Run(ctx context.Context, candidates []Candidate, requirement Requirement) (*Report, error) {
	runID := m.newRunID()
	log := logger.WithRun(m.logger, runID, requirement.ID)

	reqSkills, err := m.resolveRequirement(ctx, requirement)
	if err != nil {
		return nil, fmt.Errorf("resolve requirement %s: %w", requirement.ID, err)
	}
	requirement.Skills = reqSkills

	if strings.TrimSpace(requirement.Text) == "" {
		log.Warn("requirement text is empty; embedding scores will be 0")
	}

	reference, err := m.scorer.Embed(ctx, requirement.Text)
	if err != nil {
		return nil, fmt.Errorf("embed requirement %s: %w", requirement.ID, err)
	}

	log.Info("matching started",
		zap.Int("candidates", len(candidates)),
		zap.Int("concurrency", m.opts.Concurrency),
		zap.String("requirement_skills", requirement.Skills.String()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Concurrency)

	results := make(chan Result, len(candidates))
	waitErr := make(chan error, 1)

	go func() {
		for _, candidate := range candidates {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				res, err := m.runTask(gctx, candidate, requirement, reference, log)
				results <- res
				return err
			})
		}
		waitErr <- g.Wait()
		close(results)
	}()

	progress := Progress{Total: len(candidates)}
	all := make([]Result, 0, len(candidates))
	for res := range results {
		all = append(all, res)
		progress.Completed++
		if res.Failed() {
			progress.Failed++
		}

		log.Info("progress",
			zap.Int("completed", progress.Completed),
			zap.Int("total", progress.Total),
			zap.Int("failed", progress.Failed),
		)
		if m.opts.OnProgress != nil {
			m.opts.OnProgress(progress)
		}
	}

	if err := <-waitErr; err != nil {
		return nil, fmt.Errorf("run %s aborted: %w", runID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %s cancelled: %w", runID, err)
	}

	sortResults(all, m.opts.RankBy)

	report := &Report{
		RunID:       runID,
		Requirement: requirement,
		RankBy:      m.opts.RankBy,
		All:         all,
		Selected:    selectResults(all, m.opts.RankBy, m.opts.MinimumScore),
		Progress:    progress,
	}

	log.Info("matching finished",
		zap.Int("completed", progress.Completed-progress.Failed),
		zap.Int("failed", progress.Failed),
		zap.Int("selected", len(report.Selected)),
	)

	return report, nil
}

func (m *Matcher) resolveRequirement(ctx context.Context, requirement Requirement) (skills.Set, error) {
	if requirement.Skills.Len() > 0 {
		return requirement.Skills, nil
	}
	if strings.TrimSpace(requirement.Text) == "" {
		return nil, ai.ErrEmptyInput
	}
	return m.extractor.ExtractSkills(ctx, requirement.Text)
}

// runTask returns a non-nil error only when the whole run must stop.
func (m *Matcher) runTask(ctx context.Context, candidate Candidate, requirement Requirement, reference ai.Embedding, log *zap.Logger) (Result, error) {
	started := time.Now()
	log = logger.WithCandidate(log, candidate.ID)
	res := Result{Candidate: candidate, State: StateRunning}
	log.Debug("task running")

	fail := func(stage string, err error) (Result, error) {
		res.State = StateFailed
		res.Scores = nil
		res.Err = &TaskError{CandidateID: candidate.ID, Stage: stage, Err: err}
		res.Duration = time.Since(started)
		log.Warn("candidate failed", zap.String("stage", stage), zap.Error(err))

		if ai.IsAuthentication(err) {
			return res, res.Err
		}
		return res, nil
	}

	if strings.TrimSpace(candidate.Text) == "" {
		return fail("input", ai.ErrEmptyInput)
	}

	profile, err := m.extractor.Extract(ctx, candidate.Text)
	if err != nil {
		return fail("extract", err)
	}
	res.Profile = profile
	if profile.Failed {
		return fail("extract", fmt.Errorf("%s: %w", profile.Reason, ai.ErrMalformedResponse))
	}

	if err := ctx.Err(); err != nil {
		return fail("cancelled", err)
	}

	if m.opts.RequestDelay > 0 {
		if err := wait(ctx, m.opts.RequestDelay); err != nil {
			return fail("cancelled", err)
		}
	}

	sim, err := m.scorer.ScoreVector(ctx, candidate.Text, reference)
	if err != nil {
		return fail("similarity", err)
	}

	rec := skills.Reconcile(profile.Skills, requirement.Skills, requirement.Weights)

	scores := &Scores{
		Skill:     finite(rec.Score),
		Embedding: finite(sim.Percent),
		Cosine:    finite(sim.Raw),
	}
	if rec.Weighted != nil {
		w := finite(*rec.Weighted)
		scores.Weighted = &w
	}

	res.Matched = rec.Matched.Sorted()
	res.Missing = rec.Missing.Sorted()
	res.Skills = profile.Skills.Sorted()

	if m.opts.Feedback {
		feedback, err := m.extractor.GenerateFeedback(ctx, candidate.Text, requirement.Text)
		switch {
		case ai.IsAuthentication(err):
			return fail("feedback", err)
		case err != nil:
			log.Warn("feedback generation failed", zap.Error(err))
		default:
			res.Feedback = feedback
		}
	}

	res.Scores = scores
	res.State = StateCompleted
	res.Duration = time.Since(started)

	log.Info("candidate scored",
		zap.String("name", profile.DisplayName()),
		zap.Float64("skill_score", skills.Round2(scores.Skill)),
		zap.Float64("embedding_score", skills.Round2(scores.Embedding)),
		zap.Duration("duration", res.Duration),
	)

	return res, nil
}

// RankScore is the value used to order and select a completed result.
func RankScore(r Result, by RankBy) float64 {
	if r.Scores == nil {
		return 0
	}
	switch by {
	case RankSkills:
		return r.Scores.Skill
	case RankWeighted:
		if r.Scores.Weighted != nil {
			return *r.Scores.Weighted
		}
		return r.Scores.Skill
	default:
		return r.Scores.Embedding
	}
}

// sortResults orders by descending rank score with failures last and ties
// broken by ascending candidate ID.
func sortResults(results []Result, by RankBy) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Failed() != b.Failed() {
			return !a.Failed()
		}
		if !a.Failed() {
			sa, sb := RankScore(a, by), RankScore(b, by)
			if sa != sb {
				return sa > sb
			}
		}
		return a.Candidate.ID < b.Candidate.ID
	})
}

func selectResults(sorted []Result, by RankBy, minimum float64) []Result {
	selected := make([]Result, 0, len(sorted))
	for _, r := range sorted {
		if r.Failed() {
			continue
		}
		if RankScore(r, by) >= minimum {
			selected = append(selected, r)
		}
	}
	return selected
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// IsTaskError reports whether err describes a single failed candidate.
func IsTaskError(err error) bool {
	var te *TaskError
	return errors.As(err, &te)
}
