// Package sweepers holds periodic maintenance loops that watch the
// validation queue without mutating it.
package sweepers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mybookshelf/price-service/internal/notify"
)

// PendingCounter counts pending entries older than a threshold
type PendingCounter interface {
	CountStalePending(ctx context.Context, olderThanHours int) (int, error)
}

// StaleQueueSweeper periodically checks for flagged price changes that
// have sat unreviewed too long and alerts the admins. It never decides
// entries itself; decisions stay with the review workflow.
type StaleQueueSweeper struct {
	queue         PendingCounter
	notifier      notify.Notifier
	logger        *zerolog.Logger
	interval      time.Duration
	staleAfterHrs int
	stopChan      chan struct{}
}

// NewStaleQueueSweeper creates a sweeper for queue staleness monitoring
func NewStaleQueueSweeper(queue PendingCounter, notifier notify.Notifier, logger *zerolog.Logger,
	interval time.Duration, staleAfterHrs int) *StaleQueueSweeper {

	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &StaleQueueSweeper{
		queue:         queue,
		notifier:      notifier,
		logger:        logger,
		interval:      interval,
		staleAfterHrs: staleAfterHrs,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the periodic staleness sweep
func (s *StaleQueueSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Int("stale_after_hours", s.staleAfterHrs).
		Msg("Starting stale queue sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Stale queue sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Stale queue sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Failed to check for stale queue entries")
			}
		}
	}
}

// Stop signals the sweeper to stop
func (s *StaleQueueSweeper) Stop() {
	close(s.stopChan)
}

// Sweep counts stale pending entries and alerts when any exist
func (s *StaleQueueSweeper) Sweep(ctx context.Context) error {
	s.logger.Debug().Msg("Running stale queue check")

	count, err := s.queue.CountStalePending(ctx, s.staleAfterHrs)
	if err != nil {
		return err
	}

	if count == 0 {
		return nil
	}

	s.logger.Warn().
		Int("stale_pending", count).
		Int("older_than_hours", s.staleAfterHrs).
		Msg("Pending price reviews are going stale")

	s.notifier.Alert(ctx, "Stale price reviews",
		"There are pending price changes older than the review window awaiting a decision.")

	return nil
}
