package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"loanqa/internal/domain"
)

var (
	askQuestion string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question and exit",
	Long: `Answer a single question with the loaded index and print the answer
with the chunks it was based on.

Examples:
  loanqa ask -q "What is the interest rate for a personal loan?"
  loanqa ask -q "Home loan tenure?" --model gpt-4o-mini --temperature 0.2 --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "query", "q", "", "question to answer (required)")
	addGenerationFlags(askCmd)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("query")
}

func addGenerationFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", "", "completion model (default from config)")
	cmd.Flags().Float64("temperature", 0, "sampling temperature 0-1 (default from config)")
	cmd.Flags().Int("max-tokens", 0, "maximum answer tokens (default from config)")
}

// askSettings applies the generation flags given on the command line to
// defaults. Explicit values are passed through even when they are zero, so
// that validation can reject them.
func askSettings(cmd *cobra.Command, defaults domain.GenerationSettings) domain.GenerationSettings {
	flags := cmd.Flags()
	settings := defaults
	if flags.Changed("model") {
		settings.Model, _ = flags.GetString("model")
	}
	if flags.Changed("temperature") {
		settings.Temperature, _ = flags.GetFloat64("temperature")
	}
	if flags.Changed("max-tokens") {
		settings.MaxTokens, _ = flags.GetInt("max-tokens")
	}
	return settings
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}

	answer, err := p.answer.AnswerWith(ctx, askQuestion, askSettings(cmd, p.answer.Defaults()))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if askJSON {
		results := toChunkResults(answer.Sources)
		data, _ := json.MarshalIndent(map[string]any{
			"answer":  answer.Text,
			"model":   answer.Model,
			"sources": results,
		}, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for i, r := range toChunkResults(answer.Sources) {
			fmt.Fprintf(out, "  [%d] %s (score: %.3f)\n", i+1, r.location(), r.Score)
		}
	}
	return nil
}
