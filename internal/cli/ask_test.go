package cli

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"loanqa/internal/domain"
)

func TestAskSettings(t *testing.T) {
	defaults := domain.GenerationSettings{Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 512}

	tests := []struct {
		name  string
		flags map[string]string
		want  domain.GenerationSettings
	}{
		{"no flags", nil, defaults},
		{"model", map[string]string{"model": "gpt-4o"}, domain.GenerationSettings{Model: "gpt-4o", Temperature: 0.7, MaxTokens: 512}},
		{"zero temperature", map[string]string{"temperature": "0"}, domain.GenerationSettings{Model: "gpt-4o-mini", Temperature: 0, MaxTokens: 512}},
		{"zero max tokens", map[string]string{"max-tokens": "0"}, domain.GenerationSettings{Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 0}},
		{"max tokens", map[string]string{"max-tokens": "64"}, domain.GenerationSettings{Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "ask"}
			addGenerationFlags(cmd)
			for name, value := range tt.flags {
				if err := cmd.Flags().Set(name, value); err != nil {
					t.Fatal(err)
				}
			}
			if got := askSettings(cmd, defaults); got != tt.want {
				t.Errorf("askSettings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAskSettings_ExplicitZeroMaxTokensIsRejected(t *testing.T) {
	cmd := &cobra.Command{Use: "ask"}
	addGenerationFlags(cmd)
	if err := cmd.Flags().Set("max-tokens", "0"); err != nil {
		t.Fatal(err)
	}

	s := askSettings(cmd, domain.GenerationSettings{Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 512})
	if err := s.Validate(); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for --max-tokens 0, got %v", err)
	}
}
