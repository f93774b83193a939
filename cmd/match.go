package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/report"
	"github.com/spigell/resume-matcher/internal/similarity"
	"github.com/spigell/resume-matcher/internal/skills"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptYes, PromptNo},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank resumes against one or more job descriptions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	flags := matchCmd.Flags()
	flags.StringSliceP("resumes", "r", nil, "resume files, globs or zip archives")
	flags.StringSlice("jd", nil, "job description files, globs or zip archives")
	flags.StringSlice("skills", nil, "required skills; skips skill extraction from the job description")
	flags.String("weights-file", "", "yaml file with required skills and their weights")
	flags.Float64("min-score", 0, "minimum rank score (0-100) for a resume to be selected")
	flags.String("rank-by", "", "score used for ranking: embedding, skills or weighted")
	flags.Int("concurrency", 0, "maximum number of resumes processed at once")
	flags.Duration("request-delay", 0, "pause before each resume task")
	flags.Bool("feedback", false, "generate written feedback for every resume")
	flags.BoolP("auto-approve", "y", false, "do not ask for confirmation")
	flags.String("exclude-file", "", "file with resume names, ids or globs to skip")
	flags.Bool("keep-duplicates", false, "keep resumes with identical text")
	flags.StringP("output-dir", "o", "", "directory for the reports")
	flags.StringSlice("format", nil, "report formats: csv, xlsx, zip")
	flags.Bool("cache", false, "cache embeddings on disk")

	matchCmd.MarkFlagRequired("resumes")
	matchCmd.MarkFlagRequired("jd")

	viper.BindPFlag("skills.required", flags.Lookup("skills"))
	viper.BindPFlag("skills.weights-file", flags.Lookup("weights-file"))
	viper.BindPFlag("matching.minimum-score", flags.Lookup("min-score"))
	viper.BindPFlag("matching.rank-by", flags.Lookup("rank-by"))
	viper.BindPFlag("matching.concurrency", flags.Lookup("concurrency"))
	viper.BindPFlag("matching.request-delay", flags.Lookup("request-delay"))
	viper.BindPFlag("matching.feedback", flags.Lookup("feedback"))
	viper.BindPFlag("exclude-file", flags.Lookup("exclude-file"))
	viper.BindPFlag("output.dir", flags.Lookup("output-dir"))
	viper.BindPFlag("output.formats", flags.Lookup("format"))
	viper.BindPFlag("cache.enabled", flags.Lookup("cache"))
}

func match(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := newLogger()
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		return err
	}

	rankBy, err := matching.ParseRankBy(config.Matching.RankBy)
	if err != nil {
		return err
	}
	formats, err := report.ParseFormats(config.Output.Formats)
	if err != nil {
		return err
	}
	required, weights, err := requiredSkills(config.Skills)
	if err != nil {
		return err
	}

	tmp, err := os.MkdirTemp("", app+"-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	resumePatterns, _ := cmd.Flags().GetStringSlice("resumes")
	jdPatterns, _ := cmd.Flags().GetStringSlice("jd")

	resumes, err := (&document.Collector{TempDir: filepath.Join(tmp, "resumes"), Logger: logger}).Collect(resumePatterns)
	if err != nil {
		return fmt.Errorf("collecting resumes: %w", err)
	}
	jds, err := (&document.Collector{TempDir: filepath.Join(tmp, "jds"), Logger: logger}).Collect(jdPatterns)
	if err != nil {
		return fmt.Errorf("collecting job descriptions: %w", err)
	}

	candidates := make([]matching.Candidate, 0, len(resumes))
	for _, d := range resumes {
		candidates = append(candidates, matching.Candidate{ID: d.ID, Name: d.Name, Path: d.Path, Text: d.Text})
	}

	steps := filtering.Default()
	if keep, _ := cmd.Flags().GetBool("keep-duplicates"); keep {
		filtering.DisableByName(steps, "duplicates", "disabled by --keep-duplicates")
	}
	candidates, err = filtering.Run(ctx, &filtering.Config{ExcludeFile: config.ExcludeFile}, filtering.Deps{Logger: logger}, steps, candidates)
	if err != nil {
		return err
	}

	for _, status := range filtering.Describe(steps) {
		fields := []zap.Field{zap.String("name", status.Name), zap.Bool("enabled", status.Enabled)}
		if status.Reason != "" {
			fields = append(fields, zap.String("reason", status.Reason))
		}
		for k, v := range status.Details {
			fields = append(fields, zap.String(k, v))
		}
		logger.Debug("filter status", fields...)
	}

	if len(candidates) == 0 {
		logger.Info("no resumes left after filtering. Exiting")
		return nil
	}

	logger.Info("documents collected",
		zap.Int("resumes", len(candidates)),
		zap.Int("job_descriptions", len(jds)),
		zap.String("provider", config.Provider),
		zap.String("rank_by", string(rankBy)),
	)

	if approve, _ := cmd.Flags().GetBool("auto-approve"); !approve {
		_, answer, err := prompt.Run()
		if err != nil {
			return err
		}
		if answer != PromptYes {
			logger.Info("aborted by user")
			return nil
		}
	}

	provider, closer, err := buildProvider(ctx, config, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	ext := extraction.New(provider.Generator, config.Generation, logger)
	scorer := similarity.NewScorer(provider.Embedder, logger)

	for _, jd := range jds {
		requirement := matching.Requirement{
			ID:      jd.ID,
			Name:    jd.Name,
			Text:    jd.Text,
			Skills:  required,
			Weights: weights,
		}

		bar := newProgressBar(len(candidates), jd.Name, cmd.ErrOrStderr())
		opts := matching.Options{
			Concurrency:  config.Matching.Concurrency,
			RequestDelay: config.Matching.RequestDelay,
			MinimumScore: config.Matching.MinimumScore,
			RankBy:       rankBy,
			Feedback:     config.Matching.Feedback,
			OnProgress: func(p matching.Progress) {
				bar.Set(p.Completed)
			},
		}

		r, err := matching.NewMatcher(ext, scorer, opts, logger).Run(ctx, candidates, requirement)
		bar.Finish()
		if err != nil {
			if matching.IsTaskError(err) {
				logger.Error("a resume task stopped the run", zap.String("job_description", jd.Name), zap.Error(err))
			}
			return fmt.Errorf("matching against %s: %w", jd.Name, err)
		}

		files, err := report.Write(config.Output.Dir, r, formats)
		if err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), r, files)
	}

	return nil
}

// requiredSkills merges the inline list, the config weights and the weights
// file. A nil Set means skills are extracted from each job description.
func requiredSkills(c SkillsConfig) (skills.Set, skills.Weights, error) {
	required := skills.NewSet()
	for _, item := range c.Required {
		for s := range skills.Parse(item) {
			required.Add(s)
		}
	}
	weights := skills.NormalizeWeights(c.Weights)

	if c.WeightsFile != "" {
		fileSkills, fileWeights, err := skills.LoadFile(c.WeightsFile)
		if err != nil {
			return nil, nil, err
		}
		for s := range fileSkills {
			required.Add(s)
		}
		if len(fileWeights) > 0 {
			if weights == nil {
				weights = skills.Weights{}
			}
			for k, v := range fileWeights {
				weights[k] = v
			}
		}
	}

	for s := range weights {
		required.Add(s)
	}

	if required.Len() == 0 {
		return nil, weights, nil
	}
	return required, weights, nil
}

func newProgressBar(total int, name string, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Matching %s[reset]", name)),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

func printSummary(w io.Writer, r *matching.Report, files []string) {
	fmt.Fprintf(w, "Job description: %s (run %s)\n", r.Requirement.Name, r.RunID)
	fmt.Fprintf(w, "Processed %d resumes, %d failed, %d selected by %s score\n",
		r.Progress.Total, r.Progress.Failed, len(r.Selected), r.RankBy)

	for i, res := range r.Selected {
		name := res.Profile.DisplayName()
		if name == extraction.UnknownName {
			name = res.Candidate.Name
		}
		fmt.Fprintf(w, "  %d. %s (%s): %.2f\n", i+1, name, res.Candidate.ID, matching.RankScore(res, r.RankBy))
	}

	var failed []string
	for _, res := range r.All {
		if res.Failed() {
			failed = append(failed, res.Candidate.ID)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(w, "Failed: %s\n", strings.Join(failed, ", "))
	}

	if len(files) > 0 {
		fmt.Fprintf(w, "Reports: %s\n", strings.Join(files, ", "))
	}
}
