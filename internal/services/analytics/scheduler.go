package analytics

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
)

// Scheduler periodically triggers a fact refresh. Lifecycle transitions
// never trigger one synchronously; the snapshot is only as fresh as the last
// scheduled or manual run.
type Scheduler struct {
	refresher *Refresher
	interval  time.Duration
	logger    ectologger.Logger
}

// NewScheduler creates a new refresh scheduler
func NewScheduler(refresher *Refresher, interval time.Duration, logger ectologger.Logger) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks, refreshing on every tick until the context is cancelled. A
// failed run leaves the previous snapshot intact and is retried next tick.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("analytics refresh scheduler disabled")
		return
	}

	s.logger.Infof("analytics refresh scheduler running every %s", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("analytics refresh scheduler stopping")
			return
		case <-ticker.C:
			if _, err := s.refresher.Refresh(ctx); err != nil {
				s.logger.WithContext(ctx).WithError(err).Warn("scheduled analytics refresh failed")
			}
		}
	}
}
