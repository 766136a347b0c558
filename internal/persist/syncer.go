package persist

import (
	"context"
	"log/slog"
	"time"

	"github.com/abhisek/stepwise/internal/transcript"
)

// Syncer mirrors the in-memory conversation set into the database. Writes
// are debounced: rapid mutation bursts (streaming deltas) collapse into a
// single flush once the set has been quiet for the debounce window.
type Syncer struct {
	store    *transcript.Store
	db       *Store
	logger   *slog.Logger
	debounce time.Duration

	kick chan struct{}
}

// NewSyncer creates a syncer with the given debounce window. A zero
// window defaults to one second.
func NewSyncer(store *transcript.Store, db *Store, logger *slog.Logger, debounce time.Duration) *Syncer {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Syncer{
		store:    store,
		db:       db,
		logger:   logger,
		debounce: debounce,
		kick:     make(chan struct{}, 1),
	}
}

// Notify schedules a flush. Safe to call from any goroutine; never blocks.
func (s *Syncer) Notify() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run processes flush requests until the context is cancelled, then takes
// a final flush so the last mutations are not lost.
func (s *Syncer) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.flush(context.WithoutCancel(ctx))
			return
		case <-s.kick:
			if timer == nil {
				timer = time.NewTimer(s.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					<-fire
				}
				timer.Reset(s.debounce)
			}
		case <-fire:
			timer = nil
			fire = nil
			s.flush(ctx)
		}
	}
}

// Flush writes the current conversation set immediately.
func (s *Syncer) Flush(ctx context.Context) {
	s.flush(ctx)
}

func (s *Syncer) flush(ctx context.Context) {
	convs := s.store.List()
	ids := make([]string, 0, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.ID)
		if err := s.db.SaveConversation(ctx, conv); err != nil {
			s.logger.Warn("save conversation failed", "id", conv.ID, "error", err)
		}
	}
	if err := s.db.PruneConversations(ctx, ids); err != nil {
		s.logger.Warn("prune conversations failed", "error", err)
	}
}
