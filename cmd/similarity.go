package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/similarity"
)

var similarityCmd = &cobra.Command{
	Use:   "similarity RESUME JD",
	Short: "Print the embedding similarity of two documents",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()
		defer logger.Sync()

		config, err := getConfig()
		if err != nil {
			return err
		}

		texts := make([]string, len(args))
		for i, path := range args {
			if texts[i], err = document.Read(path); err != nil {
				return err
			}
		}

		provider, closer, err := buildProvider(ctx, config, logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		sim, err := similarity.NewScorer(provider.Embedder, logger).Score(ctx, texts[0], texts[1])
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "cosine: %.4f\nmatch: %.2f%%\n", sim.Raw, sim.Percent)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(similarityCmd)
}
