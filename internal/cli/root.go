package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"loanqa/config"
	"loanqa/internal/domain"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "loanqa",
	Short: "Loan product question answering over a local document index",
	Long: `loanqa answers questions about loan products using the documents in a
prebuilt vector index. Each question is embedded, the closest chunks are
retrieved and a chat completion model writes the answer from them.

Example usage:
  loanqa index ./brochures                        # Build index_bom/index.db
  loanqa serve                                    # Browser UI on :8501
  loanqa chat                                     # Terminal UI
  loanqa ask -q "What is the personal loan rate?" # One-shot answer`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}
		rootDir, err = filepath.Abs(rootDir)
		if err != nil {
			return fmt.Errorf("invalid directory: %w", err)
		}

		var loaded *config.Config
		if cfgFile != "" {
			loaded, err = config.Load(cfgFile)
		} else {
			loaded, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}

		cfg = loaded.Resolve(rootDir)
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger = newLogger(cfg.Logging, os.Stderr)
		return nil
	},
}

// Execute runs the root command and exits with a status derived from the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration failures to 2, index load failures to 3 and
// everything else to 1.
func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return 2
	case errors.Is(err, domain.ErrLoad):
		return 3
	default:
		return 1
	}
}

func newLogger(lc config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./loanqa.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
