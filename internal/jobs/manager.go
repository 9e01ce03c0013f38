package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ManagerConfig holds scheduling for background retention jobs
type ManagerConfig struct {
	Interval  time.Duration // How often to run retention cleanup
	Retention CleanupConfig
	Enabled   bool
}

// DefaultManagerConfig returns the default schedule
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Interval:  24 * time.Hour,
		Retention: DefaultCleanupConfig(),
		Enabled:   true,
	}
}

// CleanupManager runs retention jobs on a fixed schedule
type CleanupManager struct {
	config ManagerConfig
	logger *zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCleanupManager creates a cleanup manager
func NewCleanupManager(config ManagerConfig, logger *zerolog.Logger) *CleanupManager {
	ctx, cancel := context.WithCancel(context.Background())

	return &CleanupManager{
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop
func (cm *CleanupManager) Start() {
	if !cm.config.Enabled {
		cm.logger.Info().Msg("Cleanup jobs are disabled, not starting")
		close(cm.done)
		return
	}

	cm.logger.Info().
		Dur("interval", cm.config.Interval).
		Int("reviewed_retention_days", cm.config.Retention.ReviewedRetentionDays).
		Int("history_retention_days", cm.config.Retention.HistoryRetentionDays).
		Msg("Starting cleanup manager")

	go cm.run()
}

// Stop gracefully stops the cleanup loop
func (cm *CleanupManager) Stop() {
	cm.logger.Info().Msg("Stopping cleanup manager...")
	cm.cancel()

	select {
	case <-cm.done:
		cm.logger.Debug().Msg("Cleanup job stopped")
	case <-time.After(5 * time.Second):
		cm.logger.Warn().Msg("Cleanup job did not stop gracefully")
	}
}

func (cm *CleanupManager) run() {
	defer close(cm.done)

	ticker := time.NewTicker(cm.config.Interval)
	defer ticker.Stop()

	// Run once immediately on startup
	cm.runOnce()

	for {
		select {
		case <-cm.ctx.Done():
			cm.logger.Debug().Msg("Cleanup job stopped")
			return
		case <-ticker.C:
			cm.runOnce()
		}
	}
}

func (cm *CleanupManager) runOnce() {
	start := time.Now()
	cm.logger.Debug().Msg("Running retention cleanup")

	if err := RunAllCleanupJobs(cm.ctx, getPool(), cm.config.Retention); err != nil {
		cm.logger.Error().Err(err).Msg("Retention cleanup failed")
		return
	}

	cm.logger.Info().Dur("duration", time.Since(start)).Msg("Retention cleanup finished")
}
