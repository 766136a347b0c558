package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/stepwise/internal/app"
	"github.com/abhisek/stepwise/internal/backend"
	"github.com/abhisek/stepwise/internal/draft"
	"github.com/abhisek/stepwise/internal/persist"
	"github.com/abhisek/stepwise/internal/transcript"
)

// runApp opens the database, loads state, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := tuiLogger()

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	db, err := persist.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	store := transcript.NewStore()
	convs, err := db.LoadConversations(ctx)
	if err != nil {
		logger.Warn("load conversations failed", "error", err)
	}
	store.Replace(convs)

	drafts := draft.NewCache(db, logger)
	if saved, err := db.Drafts(ctx); err != nil {
		logger.Warn("load drafts failed", "error", err)
	} else {
		drafts.Load(saved)
	}

	syncer := persist.NewSyncer(store, db, logger, time.Second)
	syncCtx, stopSync := context.WithCancel(ctx)
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		syncer.Run(syncCtx)
	}()

	err = app.Run(app.Options{
		Store:   store,
		Backend: backend.New(backend.ConfigFromEnv()),
		Drafts:  drafts,
		Syncer:  syncer,
	})

	// The syncer takes a final flush on shutdown; wait for it before the
	// deferred db.Close.
	stopSync()
	<-syncDone
	return err
}

// tuiLogger logs to stderr only when debugging; the alternate screen owns
// the terminal otherwise.
func tuiLogger() *slog.Logger {
	if os.Getenv("STEPWISE_DEBUG") != "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
