package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abhisek/stepwise/internal/llm"
	"github.com/abhisek/stepwise/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tutoring backend HTTP server",
	Long:  "Serves the solution, answer-check, and streaming tutoring endpoints backed by the configured LLM provider.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Local development convenience; a missing .env is fine.
		_ = godotenv.Load()

		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provider, err := llm.NewProviderFromEnv(ctx, logger)
		if err != nil {
			return fmt.Errorf("configure LLM provider: %w", err)
		}

		cfg := server.ConfigFromEnv()
		httpSrv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           server.New(cfg, provider, logger).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", cfg.Addr)
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	},
}
