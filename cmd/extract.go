package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/extraction"
)

type profileView struct {
	File              string   `yaml:"file"`
	Name              string   `yaml:"name"`
	Email             string   `yaml:"email"`
	Location          string   `yaml:"location"`
	YearsOfExperience string   `yaml:"years_of_experience"`
	Skills            []string `yaml:"skills"`
	Failed            bool     `yaml:"failed,omitempty"`
	Reason            string   `yaml:"reason,omitempty"`
}

var extractCmd = &cobra.Command{
	Use:   "extract FILE...",
	Short: "Extract candidate profiles from resumes and print them as YAML",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()
		defer logger.Sync()

		config, err := getConfig()
		if err != nil {
			return err
		}

		provider, closer, err := buildProvider(ctx, config, logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		ext := extraction.New(provider.Generator, config.Generation, logger)

		views := make([]profileView, 0, len(args))
		for _, path := range args {
			text, err := document.Read(path)
			if err != nil {
				return err
			}

			profile, err := ext.Extract(ctx, text)
			if err != nil {
				return fmt.Errorf("extracting %s: %w", path, err)
			}

			views = append(views, profileView{
				File:              path,
				Name:              profile.DisplayName(),
				Email:             profile.Email.Or(extraction.NotFound),
				Location:          profile.Location.Or(extraction.NotFound),
				YearsOfExperience: profile.YearsOfExperience.Or(extraction.NotFound),
				Skills:            profile.Skills.Sorted(),
				Failed:            profile.Failed,
				Reason:            profile.Reason,
			})
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(views)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
