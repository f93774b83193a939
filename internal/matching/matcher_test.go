package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/similarity"
	"github.com/spigell/resume-matcher/internal/skills"
)

type fakeExtractor struct {
	mu          sync.Mutex
	profiles    map[string]extraction.Profile
	errs        map[string]error
	reqSkills   skills.Set
	reqErr      error
	feedbackErr error

	extractCalls  []string
	skillCalls    int
	feedbackCalls int

	inFlight    int
	maxInFlight int
	delay       time.Duration
}

func (f *fakeExtractor) Extract(_ context.Context, text string) (extraction.Profile, error) {
	f.mu.Lock()
	f.extractCalls = append(f.extractCalls, text)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if err := f.errs[text]; err != nil {
		return extraction.Profile{}, err
	}
	return f.profiles[text], nil
}

func (f *fakeExtractor) ExtractSkills(context.Context, string) (skills.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skillCalls++
	return f.reqSkills, f.reqErr
}

func (f *fakeExtractor) GenerateFeedback(_ context.Context, candidateText, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedbackCalls++
	if f.feedbackErr != nil {
		return "", f.feedbackErr
	}
	return "feedback for " + candidateText, nil
}

type fakeScorer struct {
	mu      sync.Mutex
	percent map[string]float64
	embeds  int
	err     error
}

func (f *fakeScorer) Embed(context.Context, string) (ai.Embedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds++
	return ai.Embedding{1, 0}, nil
}

func (f *fakeScorer) ScoreVector(_ context.Context, text string, _ ai.Embedding) (similarity.Similarity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return similarity.Similarity{}, f.err
	}
	p := f.percent[text]
	return similarity.Similarity{Raw: p / 100, Percent: p}, nil
}

func profile(name string, skillNames ...string) extraction.Profile {
	return extraction.Profile{
		Name:   extraction.NewField(name),
		Email:  extraction.NewField(name + "@example.com"),
		Skills: skills.NewSet(skillNames...),
	}
}

func newTestMatcher(ext *fakeExtractor, sc *fakeScorer, opts Options) *Matcher {
	m := NewMatcher(ext, sc, opts, zap.NewNop())
	m.newRunID = func() string { return "run-1" }
	return m
}

func threeCandidates() ([]Candidate, *fakeExtractor, *fakeScorer) {
	candidates := []Candidate{
		{ID: "c1", Text: "resume one"},
		{ID: "c2", Text: "resume two"},
		{ID: "c3", Text: "resume three"},
	}
	ext := &fakeExtractor{profiles: map[string]extraction.Profile{
		"resume one":   profile("One", "python", "aws"),
		"resume two":   {Failed: true, Reason: "no five-column row in model output"},
		"resume three": profile("Three", "python"),
	}}
	sc := &fakeScorer{percent: map[string]float64{"resume one": 72, "resume two": 99, "resume three": 85}}
	return candidates, ext, sc
}

func TestRunIsolatesMalformedCandidate(t *testing.T) {
	candidates, ext, sc := threeCandidates()

	var progress []Progress
	opts := Options{Concurrency: 2, OnProgress: func(p Progress) { progress = append(progress, p) }}

	report, err := newTestMatcher(ext, sc, opts).Run(context.Background(), candidates,
		Requirement{ID: "jd", Text: "job text", Skills: skills.NewSet("python", "java")})
	require.NoError(t, err)

	require.Len(t, report.All, 3)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, []string{"c3", "c1", "c2"}, ids(report.All))

	failed := report.All[2]
	assert.Equal(t, StateFailed, failed.State)
	assert.Nil(t, failed.Scores)
	assert.ErrorIs(t, failed.Err, ai.ErrMalformedResponse)
	assert.True(t, IsTaskError(failed.Err))

	top := report.All[0]
	require.NotNil(t, top.Scores)
	assert.Equal(t, StateCompleted, top.State)
	assert.Equal(t, 85.0, top.Scores.Embedding)
	assert.Equal(t, 50.0, top.Scores.Skill)
	assert.Nil(t, top.Scores.Weighted)
	assert.Equal(t, []string{"python"}, top.Matched)
	assert.Equal(t, []string{"java"}, top.Missing)

	require.Len(t, progress, 3)
	assert.Equal(t, Progress{Completed: 3, Total: 3, Failed: 1}, progress[2])
	assert.Equal(t, progress[2], report.Progress)
	assert.Equal(t, 0, ext.skillCalls, "curated skills must not be re-extracted")
	assert.Equal(t, 1, sc.embeds, "requirement is embedded once per run")
}

func TestRunOrderIsDeterministic(t *testing.T) {
	var candidates []Candidate
	profiles := map[string]extraction.Profile{}
	percent := map[string]float64{}
	for i := 9; i >= 0; i-- {
		text := fmt.Sprintf("resume %d", i)
		candidates = append(candidates, Candidate{ID: fmt.Sprintf("c%02d", i), Text: text})
		profiles[text] = profile(text, "go")
		percent[text] = float64(50 + 10*(i%2))
	}

	want := []string{"c01", "c03", "c05", "c07", "c09", "c00", "c02", "c04", "c06", "c08"}
	for _, concurrency := range []int{1, 3, 10} {
		ext := &fakeExtractor{profiles: profiles}
		report, err := newTestMatcher(ext, &fakeScorer{percent: percent}, Options{Concurrency: concurrency}).
			Run(context.Background(), candidates, Requirement{ID: "jd", Text: "job", Skills: skills.NewSet("go")})
		require.NoError(t, err)
		assert.Equal(t, want, ids(report.All), "concurrency %d", concurrency)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var candidates []Candidate
	profiles := map[string]extraction.Profile{}
	for i := 0; i < 12; i++ {
		text := fmt.Sprintf("resume %d", i)
		candidates = append(candidates, Candidate{ID: text, Text: text})
		profiles[text] = profile(text)
	}

	ext := &fakeExtractor{profiles: profiles, delay: 5 * time.Millisecond}
	_, err := newTestMatcher(ext, &fakeScorer{}, Options{Concurrency: 3}).
		Run(context.Background(), candidates, Requirement{ID: "jd", Text: "job", Skills: skills.NewSet("go")})
	require.NoError(t, err)

	assert.LessOrEqual(t, ext.maxInFlight, 3)
	assert.Len(t, ext.extractCalls, 12)
}

func TestRunAbortsOnAuthentication(t *testing.T) {
	candidates, ext, sc := threeCandidates()
	ext.errs = map[string]error{"resume one": ai.Authentication("invoke", errors.New("expired token"))}

	report, err := newTestMatcher(ext, sc, Options{Concurrency: 1}).
		Run(context.Background(), candidates, Requirement{ID: "jd", Text: "job", Skills: skills.NewSet("python")})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ai.ErrAuthentication)
}

func TestRunTransientFailureIsolated(t *testing.T) {
	candidates, ext, sc := threeCandidates()
	ext.errs = map[string]error{"resume one": fmt.Errorf("generate failed after 3 attempts: %w", ai.Transient("invoke", errors.New("throttled")))}

	report, err := newTestMatcher(ext, sc, Options{}).
		Run(context.Background(), candidates, Requirement{ID: "jd", Text: "job", Skills: skills.NewSet("python")})
	require.NoError(t, err)

	assert.Equal(t, []string{"c3", "c1", "c2"}, ids(report.All))
	assert.True(t, report.All[1].Failed())
	assert.ErrorIs(t, report.All[1].Err, ai.ErrTransient)
	assert.Equal(t, 2, report.Progress.Failed)
}

func TestRunRequirementFailuresAbortBeforeTasks(t *testing.T) {
	candidates, _, sc := threeCandidates()

	cases := []struct {
		name        string
		ext         *fakeExtractor
		requirement Requirement
		want        error
	}{
		{
			name:        "malformed skill list",
			ext:         &fakeExtractor{reqErr: fmt.Errorf("extract skills: %w", ai.ErrMalformedResponse)},
			requirement: Requirement{ID: "jd", Text: "job"},
			want:        ai.ErrMalformedResponse,
		},
		{
			name:        "empty requirement",
			ext:         &fakeExtractor{},
			requirement: Requirement{ID: "jd", Text: "   "},
			want:        ai.ErrEmptyInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestMatcher(tc.ext, sc, Options{}).Run(context.Background(), candidates, tc.requirement)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, tc.ext.extractCalls)
		})
	}
}

func TestRunExtractsRequirementSkillsOnce(t *testing.T) {
	candidates, ext, sc := threeCandidates()
	ext.reqSkills = skills.NewSet("aws")

	report, err := newTestMatcher(ext, sc, Options{RankBy: RankSkills}).
		Run(context.Background(), candidates, Requirement{ID: "jd", Text: "job"})
	require.NoError(t, err)

	assert.Equal(t, 1, ext.skillCalls)
	assert.Equal(t, []string{"aws"}, report.Requirement.Skills.Sorted())
	assert.Equal(t, []string{"c1", "c3", "c2"}, ids(report.All))
	assert.Equal(t, 100.0, report.All[0].Scores.Skill)
}

func TestRunEmptyCandidateTextSkipsModel(t *testing.T) {
	ext := &fakeExtractor{profiles: map[string]extraction.Profile{"text": profile("A")}}

	report, err := newTestMatcher(ext, &fakeScorer{}, Options{}).Run(context.Background(),
		[]Candidate{{ID: "a", Text: "text"}, {ID: "b", Text: " \n"}},
		Requirement{ID: "jd", Text: "job", Skills: skills.NewSet("go")})
	require.NoError(t, err)

	assert.Equal(t, []string{"text"}, ext.extractCalls)
	assert.ErrorIs(t, report.All[1].Err, ai.ErrEmptyInput)
}

func TestRunWeightedAndSelection(t *testing.T) {
	candidates, ext, sc := threeCandidates()

	report, err := newTestMatcher(ext, sc, Options{RankBy: RankWeighted, MinimumScore: 60}).
		Run(context.Background(), candidates, Requirement{
			ID:      "jd",
			Text:    "job",
			Skills:  skills.NewSet("python", "aws", "java"),
			Weights: skills.Weights{"python": 2, "aws": 1, "java": 1},
		})
	require.NoError(t, err)

	require.NotNil(t, report.All[0].Scores.Weighted)
	assert.Equal(t, "c1", report.All[0].Candidate.ID)
	assert.InDelta(t, 75.0, *report.All[0].Scores.Weighted, 1e-9)
	assert.InDelta(t, 50.0, *report.All[1].Scores.Weighted, 1e-9)
	assert.Equal(t, []string{"c1"}, ids(report.Selected))
}

func TestRunFeedback(t *testing.T) {
	candidates, ext, sc := threeCandidates()

	report, err := newTestMatcher(ext, sc, Options{Feedback: true}).
		Run(context.Background(), candidates, Requirement{ID: "jd", Text: "job", Skills: skills.NewSet("python")})
	require.NoError(t, err)
	assert.Equal(t, "feedback for resume three", report.All[0].Feedback)
	assert.Equal(t, 2, ext.feedbackCalls)

	core, observed := observer.New(zapcore.WarnLevel)
	candidates, ext, sc = threeCandidates()
	ext.feedbackErr = errors.New("model unavailable")
	m := NewMatcher(ext, sc, Options{Feedback: true}, zap.New(core))

	report, err = m.Run(context.Background(), candidates, Requirement{ID: "jd", Text: "job", Skills: skills.NewSet("python")})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, report.All[0].State)
	assert.Empty(t, report.All[0].Feedback)
	assert.Equal(t, 2, observed.FilterMessage("feedback generation failed").Len())
}

func TestRunWarnsOnEmptyRequirementText(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	candidates, ext, sc := threeCandidates()
	m := NewMatcher(ext, sc, Options{}, zap.New(core))

	report, err := m.Run(context.Background(), candidates, Requirement{ID: "jd", Skills: skills.NewSet("python")})
	require.NoError(t, err)
	assert.Len(t, report.All, 3)
	assert.Equal(t, 1, observed.FilterMessage("requirement text is empty; embedding scores will be 0").Len())

	core, observed = observer.New(zapcore.WarnLevel)
	candidates, ext, sc = threeCandidates()
	_, err = NewMatcher(ext, sc, Options{}, zap.New(core)).
		Run(context.Background(), candidates, Requirement{ID: "jd", Text: "job", Skills: skills.NewSet("python")})
	require.NoError(t, err)
	assert.Zero(t, observed.FilterMessage("requirement text is empty; embedding scores will be 0").Len())
}

func TestRunRequestDelayHonoursCancellation(t *testing.T) {
	original := wait
	defer func() { wait = original }()

	var waits []time.Duration
	var mu sync.Mutex
	wait = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		waits = append(waits, d)
		mu.Unlock()
		return nil
	}

	candidates, ext, sc := threeCandidates()
	_, err := newTestMatcher(ext, sc, Options{RequestDelay: 500 * time.Millisecond}).
		Run(context.Background(), candidates, Requirement{ID: "jd", Text: "job", Skills: skills.NewSet("python")})
	require.NoError(t, err)
	assert.Len(t, waits, 2, "only candidates with a profile wait before embedding")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newTestMatcher(ext, sc, Options{}).
		Run(ctx, candidates, Requirement{ID: "jd", Text: "job", Skills: skills.NewSet("python")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseRankBy(t *testing.T) {
	for in, want := range map[string]RankBy{"": RankEmbedding, "skills": RankSkills, "weighted": RankWeighted} {
		got, err := ParseRankBy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseRankBy("random")
	assert.Error(t, err)
}

func ids(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Candidate.ID
	}
	return out
}
