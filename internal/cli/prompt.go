package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var promptQuestion string

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt that would be sent for a question",
	Long: `Retrieve context for a question and print the assembled prompt without
calling the completion model. Useful for checking retrieval and the prompt
template.

Examples:
  loanqa prompt -q "What documents are needed for a car loan?"`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptQuestion, "query", "q", "", "question (required)")
	promptCmd.MarkFlagRequired("query")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := buildPipeline(ctx, GetConfig(), logger)
	if err != nil {
		return err
	}

	prompt, err := p.answer.Prompt(ctx, promptQuestion)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), prompt)
	return nil
}
