package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"loanqa/internal/adapter/store"
)

var (
	inspectPath string
	inspectJSON bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the manifest and contents of an index",
	Long: `Print how an index was built and what it contains. The index is opened
read-only and is not checked against the current embedding settings.

Examples:
  loanqa inspect
  loanqa inspect --index /tmp/index.db --json`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectPath, "index", "", "index file (default from config)")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := GetConfig().Index.Path()
	if inspectPath != "" {
		var err error
		if path, err = filepath.Abs(inspectPath); err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	manifest, stats, docs, err := store.Inspect(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if inspectJSON {
		data, _ := json.MarshalIndent(map[string]any{
			"path":     path,
			"manifest": manifest,
			"stats":    stats,
			"docs":     docs,
		}, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Index: %s\n\n", path)
	fmt.Fprintf(out, "  Schema version:  %d\n", manifest.SchemaVersion)
	fmt.Fprintf(out, "  Embedding model: %s\n", manifest.EmbeddingModel)
	fmt.Fprintf(out, "  Dimension:       %d\n", manifest.Dimension)
	fmt.Fprintf(out, "  Metric:          %s\n", manifest.Metric)
	fmt.Fprintf(out, "  Build ID:        %s\n", manifest.BuildID)
	fmt.Fprintf(out, "  Built at:        %s\n", manifest.BuiltAt.Local().Format(time.RFC1123))
	fmt.Fprintf(out, "  Config hash:     %s\n", manifest.ConfigHash)
	fmt.Fprintf(out, "  Documents:       %d\n", stats.TotalDocs)
	fmt.Fprintf(out, "  Chunks:          %d\n", stats.TotalChunks)
	fmt.Fprintf(out, "  Avg chunk chars: %.0f\n", stats.AvgChunkLen)

	if len(docs) > 0 {
		fmt.Fprintln(out, "\nDocuments:")
		for _, d := range docs {
			fmt.Fprintf(out, "  %-6s %3d pages  %s\n", d.Kind, d.Pages, d.Path)
		}
	}
	return nil
}
