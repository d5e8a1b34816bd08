package cli

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"loanqa/internal/domain"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the chunks retrieved for a question",
	Long: `Embed a question and list the closest chunks from the index without
calling the completion model.

Examples:
  loanqa query -q "gold loan margin"
  loanqa query -q "education loan collateral" --top-k 8 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

// chunkResult is a retrieved chunk as printed by the CLI.
type chunkResult struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Page   int     `json:"page,omitempty"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

func (r chunkResult) location() string {
	if r.Page > 0 {
		return fmt.Sprintf("%s p.%d", r.Source, r.Page)
	}
	return r.Source
}

func toChunkResults(scored []domain.ScoredChunk) []chunkResult {
	results := make([]chunkResult, len(scored))
	for i, s := range scored {
		results[i] = chunkResult{
			ID:     s.Chunk.ID,
			Source: s.Chunk.Source,
			Page:   s.Chunk.Page,
			Score:  s.Score,
			Text:   s.Chunk.Content,
		}
	}
	return results
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	scored, err := p.answer.Retrieve(ctx, queryText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	results := toChunkResults(scored)

	out := cmd.OutOrStdout()
	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Fprintf(out, "--- [%d] %s (score: %.3f) ---\n", i+1, r.location(), r.Score)
		fmt.Fprintln(out, truncate(r.Text, 500))
		fmt.Fprintln(out)
	}
	return nil
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
