package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/utils"
)

const checkPrompt = "Reply with the single word OK."

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify provider credentials with one generation and one embedding call",
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		reply, err := provider.Generator.Generate(ctx, ai.GenerateRequest{
			Prompt:          checkPrompt,
			MaxOutputTokens: 10,
			Temperature:     0,
			TopP:            1,
		})
		if err != nil {
			return fmt.Errorf("generation check failed: %w", err)
		}
		logger.Debug("generation check passed", zap.String("reply", utils.TruncateForLog(reply, 50)))

		vec, err := provider.Embedder.Embed(ctx, checkPrompt)
		if err != nil {
			return fmt.Errorf("embedding check failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "provider: %s\ntext model: %s\nembedding model: %s (%d dimensions)\nstatus: ok\n",
			provider.Name, provider.Generator.Model(), provider.Embedder.Model(), len(vec))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
