package cli

import (
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"loanqa/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in a terminal UI",
	Long: `Load the index and open an interactive terminal shell.

Keys:
  Enter      ask the question
  F2         cycle model
  F3         cycle max tokens
  F5 / F6    lower / raise temperature
  PgUp/PgDn  scroll the answer
  Esc        quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	// Log lines would corrupt the alternate screen.
	p, err := buildPipeline(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}

	m := tui.New(ctx, p.answer, tui.Options{
		Title:           cfg.UI.Title,
		Subtitle:        cfg.UI.Subtitle,
		Models:          cfg.LLM.Models,
		MaxTokenChoices: cfg.LLM.MaxTokensChoices,
		Defaults:        cfg.DefaultSettings(),
	})
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
