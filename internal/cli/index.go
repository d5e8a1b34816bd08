package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"loanqa/internal/adapter/analyzer"
	"loanqa/internal/adapter/chunker"
	"loanqa/internal/adapter/fs"
	"loanqa/internal/usecase"
)

var indexOut string

var indexCmd = &cobra.Command{
	Use:   "index [docs]",
	Short: "Build the vector index from a directory of documents",
	Long: `Build the vector index from PDF, Markdown and text documents.
The index is written to index_bom/index.db (see index.dir and index.name)
and replaces any previous index only once the build has succeeded.

Examples:
  loanqa index ./brochures
  loanqa index ./brochures --out /tmp/index.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVarP(&indexOut, "out", "o", "", "output file (default from config)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()
	outPath := cfg.Index.Path()
	if indexOut != "" {
		outPath, err = filepath.Abs(indexOut)
		if err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
	}

	tokenizer := analyzer.NewTokenizer(true)
	emb, err := embedderForBuild(cfg, tokenizer)
	if err != nil {
		return err
	}

	indexUC := usecase.NewIndexUseCase(
		fs.NewWalker(cfg.Build.Includes, cfg.Build.Excludes),
		fs.NewExtractor(),
		chunker.NewTextChunker(cfg.Build.ChunkTokens, cfg.Build.ChunkOverlap, tokenizer),
		emb,
		cfg.Build,
		cfg.Embedding.BatchSize,
		logger,
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning %s...\n", path)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progressCallback := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		bar.Set(done)

		if done > 0 {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	start := time.Now()
	result, err := indexUC.Build(cmd.Context(), path, outPath, progressCallback)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Fprintf(out, "\nIndexing complete in %s:\n", formatDuration(time.Since(start)))
	fmt.Fprintf(out, "  Files indexed:   %d\n", result.FilesIndexed)
	fmt.Fprintf(out, "  Files skipped:   %d (no text)\n", result.FilesSkipped)
	fmt.Fprintf(out, "  Chunks created:  %d\n", result.ChunksCreated)
	fmt.Fprintf(out, "  Embedding model: %s (%d dims)\n", result.Manifest.EmbeddingModel, result.Manifest.Dimension)
	fmt.Fprintf(out, "  Build ID:        %s\n", result.Manifest.BuildID)

	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
	}

	fmt.Fprintf(out, "\nIndex stored at: %s\n", outPath)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
