// Package scheduler provides an optional in-process trigger loop for
// deployments without an external cron service.
package scheduler

import (
	"context"
	"time"

	"github.com/daybrew/pulse/internal/models"
	"github.com/daybrew/pulse/internal/pipeline"
	"log/slog"
)

// Runner triggers one aggregation run.
type Runner interface {
	Run(ctx context.Context, date string, slot models.Slot, force bool) (pipeline.Report, error)
}

// Scheduler periodically triggers the aggregation pipeline for the current
// day and slot. The pipeline's own idempotency check makes repeated triggers
// for an already-built briefing cheap no-ops.
type Scheduler struct {
	runner        Runner
	logger        *slog.Logger
	stopChan      chan struct{}
	checkInterval time.Duration
	now           func() time.Time
}

// New creates a scheduler with the given check interval.
func New(runner Runner, checkInterval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:        runner,
		logger:        logger,
		stopChan:      make(chan struct{}),
		checkInterval: checkInterval,
		now:           time.Now,
	}
}

// Start begins the scheduler loop. It blocks until Stop is called or the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting scheduler", "check_interval", s.checkInterval)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Run once immediately on start.
	s.trigger(ctx)

	for {
		select {
		case <-ticker.C:
			s.trigger(ctx)
		case <-s.stopChan:
			s.logger.Info("scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler loop.
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

func (s *Scheduler) trigger(ctx context.Context) {
	now := s.now().UTC()
	date := now.Format("2006-01-02")
	slot := models.CurrentSlot(now)

	report, err := s.runner.Run(ctx, date, slot, false)
	if err != nil {
		s.logger.Error("scheduled aggregation failed", "date", date, "slot", slot, "error", err)
		return
	}

	if report.Skipped {
		s.logger.Debug("scheduled aggregation skipped, briefing exists", "date", date)
		return
	}

	s.logger.Info("scheduled aggregation complete",
		"date", date,
		"slot", slot,
		"items", report.AfterDedupe,
		"duration_ms", report.DurationMs)
}
