package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"loanqa/config"
	"loanqa/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser assistant",
	Long: `Load the index and serve the single-page assistant with its JSON API.
Startup fails if credentials are missing or the index cannot be loaded.

Examples:
  loanqa serve
  loanqa serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func serverOptions(cfg *config.Config) server.Options {
	return server.Options{
		Title:           cfg.UI.Title,
		Subtitle:        cfg.UI.Subtitle,
		Footer:          cfg.UI.Footer,
		Models:          cfg.LLM.Models,
		MaxTokenChoices: cfg.LLM.MaxTokensChoices,
		Defaults:        cfg.DefaultSettings(),
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(p.answer, serverOptions(cfg), logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", addr, "title", cfg.UI.Title)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
