package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/cwlens/pkg/config"
)

// Scheduler prunes a Store on a cron schedule.
type Scheduler struct {
	store  Store
	cfg    config.RetentionConfig
	cron   *cron.Cron
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a Scheduler. Nothing runs until Start.
func NewScheduler(store Store, cfg config.RetentionConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:  store,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger.With("component", "journal.retention"),
		now:    time.Now,
	}
}

// Start schedules pruning. A zero MaxAge or empty schedule disables it.
// The scheduler stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.MaxAge <= 0 || s.cfg.Schedule == "" {
		s.logger.Info("journal retention disabled")
		return nil
	}
	if s.running {
		return fmt.Errorf("retention scheduler already running")
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info("journal retention scheduler started",
		"schedule", s.cfg.Schedule,
		"max_age", s.cfg.MaxAge.String(),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// RunOnce prunes entries older than MaxAge.
func (s *Scheduler) RunOnce(ctx context.Context) int64 {
	cutoff := s.now().Add(-s.cfg.MaxAge)
	deleted, err := s.store.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("journal pruning failed", "error", err)
		return 0
	}
	if deleted > 0 {
		s.logger.Info("journal pruned", "deleted", deleted, "cutoff", cutoff)
	} else {
		s.logger.Debug("journal pruning found nothing to delete")
	}
	return deleted
}

// Stop halts scheduling and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("journal retention scheduler stopped")
}

// IsRunning reports whether pruning is scheduled.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled prune, or nil when not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
