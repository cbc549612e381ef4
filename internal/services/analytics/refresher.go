// Package analytics drives the fact materialization pipeline: load sources,
// compute fact rows, and atomically swap the snapshot.
package analytics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	analyticsrepo "github.com/civicpulse/civicpulse/internal/repositories/analytics"
	"github.com/civicpulse/civicpulse/internal/repositories/assignment"
	"github.com/civicpulse/civicpulse/internal/repositories/report"
	"github.com/civicpulse/civicpulse/pkg/analytics"
	"github.com/civicpulse/civicpulse/pkg/metrics"
	"github.com/civicpulse/civicpulse/pkg/models"
	"github.com/civicpulse/civicpulse/pkg/redis"
	"github.com/civicpulse/civicpulse/pkg/tracing"
)

const (
	refreshLockKey = "analytics:refresh"
	refreshLockTTL = 5 * time.Minute
)

// Locker serializes the refresh across service replicas
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// Refresher rebuilds the fact snapshot. A distributed lock keeps the fact
// store single-writer across service replicas; an aborted refresh never
// swaps, so the previous snapshot stays queryable.
type Refresher struct {
	logger      ectologger.Logger
	reports     report.ReportRepository
	assignments assignment.AssignmentRepository
	facts       analyticsrepo.AnalyticsRepository
	locker      Locker
}

// NewRefresher creates a new analytics refresher
func NewRefresher(
	logger ectologger.Logger,
	reports report.ReportRepository,
	assignments assignment.AssignmentRepository,
	facts analyticsrepo.AnalyticsRepository,
	locker Locker,
) *Refresher {
	return &Refresher{
		logger:      logger,
		reports:     reports,
		assignments: assignments,
		facts:       facts,
		locker:      locker,
	}
}

// Refresh recomputes the whole fact store from the live tables. Safe to call
// repeatedly; a refresh already running elsewhere returns 409.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "analytics.Refresher.Refresh")
	defer span.End()

	start := time.Now()

	var rows int
	err := r.locker.WithLock(ctx, refreshLockKey, refreshLockTTL, func() error {
		var err error
		rows, err = r.rebuild(ctx)
		return err
	})
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			metrics.RefreshesTotal.WithLabelValues("locked").Inc()
			return 0, httperror.NewHTTPError(http.StatusConflict, "refresh already in progress")
		}
		metrics.RefreshesTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	metrics.RefreshesTotal.WithLabelValues("ok").Inc()
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	metrics.FactsRefreshed.Set(float64(rows))

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"rows":     rows,
		"duration": time.Since(start).String(),
	}).Info("refreshed analytics facts")

	return rows, nil
}

func (r *Refresher) rebuild(ctx context.Context) (int, error) {
	reports, err := r.reports.ListForFacts(ctx)
	if err != nil {
		return 0, err
	}

	times, err := r.assignments.FirstTimes(ctx)
	if err != nil {
		return 0, err
	}

	src := make([]models.Report, len(reports))
	for i, rpt := range reports {
		src[i] = *rpt
	}

	facts := analytics.BuildFacts(src, times, time.Now().UTC())

	if err := r.facts.ReplaceFacts(ctx, facts); err != nil {
		return 0, err
	}

	return len(facts), nil
}
