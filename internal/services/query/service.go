// Package query is the read-side façade over the analytics fact store and
// the live operational buckets.
package query

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/xuri/excelize/v2"

	analyticsrepo "github.com/civicpulse/civicpulse/internal/repositories/analytics"
	"github.com/civicpulse/civicpulse/internal/repositories/report"
	"github.com/civicpulse/civicpulse/pkg/auth"
	"github.com/civicpulse/civicpulse/pkg/metrics"
	"github.com/civicpulse/civicpulse/pkg/models"
	"github.com/civicpulse/civicpulse/pkg/redis"
	"github.com/civicpulse/civicpulse/pkg/tracing"
)

const (
	// defaultWindow is applied when the caller gives no date range
	defaultWindow = 365 * 24 * time.Hour

	summaryCacheTTL = time.Minute
)

var bucketTypes = []models.BucketType{
	models.BucketUnassigned,
	models.BucketOverdue,
	models.BucketInProgress,
	models.BucketAwaitingApproval,
	models.BucketResolved,
}

// Service implements the analytics query façade
type Service struct {
	logger       ectologger.Logger
	facts        analyticsrepo.AnalyticsRepository
	reports      report.ReportRepository
	cache        *redis.Client
	overdueAfter time.Duration
}

// NewService creates a new query service
func NewService(
	logger ectologger.Logger,
	facts analyticsrepo.AnalyticsRepository,
	reports report.ReportRepository,
	cache *redis.Client,
	overdueAfter time.Duration,
) *Service {
	if overdueAfter <= 0 {
		overdueAfter = 7 * 24 * time.Hour
	}
	return &Service{
		logger:       logger,
		facts:        facts,
		reports:      reports,
		cache:        cache,
		overdueAfter: overdueAfter,
	}
}

// Summary returns the headline dashboard aggregates for the window
func (s *Service) Summary(ctx context.Context, filters *models.AnalyticsFilters) (*models.SummaryStats, error) {
	ctx, span := tracing.StartSpan(ctx, "query.Summary")
	defer span.End()

	if err := auth.Require(ctx, auth.CapabilityAnalytics); err != nil {
		return nil, err
	}

	filters = withDefaultWindow(filters)

	cacheKey := summaryKey(filters)
	if s.cache != nil {
		var cached models.SummaryStats
		if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	start := time.Now()
	stats, err := s.facts.Summary(ctx, filters)
	if err != nil {
		return nil, err
	}
	metrics.QueryDuration.WithLabelValues("summary").Observe(time.Since(start).Seconds())

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, stats, summaryCacheTTL); err != nil {
			s.logger.WithContext(ctx).WithError(err).Debug("failed to cache summary")
		}
	}

	return stats, nil
}

// Funnel returns the submitted/assigned/resolved counts for the window
func (s *Service) Funnel(ctx context.Context, filters *models.AnalyticsFilters) (*models.FunnelStats, error) {
	ctx, span := tracing.StartSpan(ctx, "query.Funnel")
	defer span.End()

	if err := auth.Require(ctx, auth.CapabilityAnalytics); err != nil {
		return nil, err
	}

	start := time.Now()
	funnel, err := s.facts.Funnel(ctx, withDefaultWindow(filters))
	if err != nil {
		return nil, err
	}
	metrics.QueryDuration.WithLabelValues("funnel").Observe(time.Since(start).Seconds())

	return funnel, nil
}

// Buckets returns every operational bucket with counts and drill-down ids.
// Buckets read the live tables, not the fact snapshot.
func (s *Service) Buckets(ctx context.Context) ([]models.BucketCount, error) {
	ctx, span := tracing.StartSpan(ctx, "query.Buckets")
	defer span.End()

	if err := auth.Require(ctx, auth.CapabilityAnalytics); err != nil {
		return nil, err
	}

	start := time.Now()

	buckets := make([]models.BucketCount, 0, len(bucketTypes))
	for _, bucket := range bucketTypes {
		count, err := s.reports.BucketReports(ctx, bucket, s.overdueAfter)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, *count)
	}

	metrics.QueryDuration.WithLabelValues("buckets").Observe(time.Since(start).Seconds())

	return buckets, nil
}

// CategoryDistribution returns fact counts per category
func (s *Service) CategoryDistribution(ctx context.Context, filters *models.AnalyticsFilters) ([]models.CategoryCount, error) {
	ctx, span := tracing.StartSpan(ctx, "query.CategoryDistribution")
	defer span.End()

	if err := auth.Require(ctx, auth.CapabilityAnalytics); err != nil {
		return nil, err
	}

	start := time.Now()
	counts, err := s.facts.CategoryDistribution(ctx, withDefaultWindow(filters))
	if err != nil {
		return nil, err
	}
	metrics.QueryDuration.WithLabelValues("categories").Observe(time.Since(start).Seconds())

	if counts == nil {
		counts = []models.CategoryCount{}
	}
	return counts, nil
}

// TemporalDistribution returns fact counts bucketed by creation time
func (s *Service) TemporalDistribution(ctx context.Context, filters *models.AnalyticsFilters, granularity models.Granularity) ([]models.TimeBucket, error) {
	ctx, span := tracing.StartSpan(ctx, "query.TemporalDistribution")
	defer span.End()

	if err := auth.Require(ctx, auth.CapabilityAnalytics); err != nil {
		return nil, err
	}

	if granularity == "" {
		granularity = models.GranularityDaily
	}
	if !granularity.Valid() {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown granularity '%s'", granularity)
	}

	start := time.Now()
	buckets, err := s.facts.TemporalDistribution(ctx, withDefaultWindow(filters), granularity)
	if err != nil {
		return nil, err
	}
	metrics.QueryDuration.WithLabelValues("temporal").Observe(time.Since(start).Seconds())

	if buckets == nil {
		buckets = []models.TimeBucket{}
	}
	return buckets, nil
}

// SpatialDistribution returns fact counts in a lat/lng grid
func (s *Service) SpatialDistribution(ctx context.Context, filters *models.AnalyticsFilters, cellSize float64) ([]models.SpatialCell, error) {
	ctx, span := tracing.StartSpan(ctx, "query.SpatialDistribution")
	defer span.End()

	if err := auth.Require(ctx, auth.CapabilityAnalytics); err != nil {
		return nil, err
	}

	start := time.Now()
	cells, err := s.facts.SpatialDistribution(ctx, withDefaultWindow(filters), cellSize)
	if err != nil {
		return nil, err
	}
	metrics.QueryDuration.WithLabelValues("spatial").Observe(time.Since(start).Seconds())

	if cells == nil {
		cells = []models.SpatialCell{}
	}
	return cells, nil
}

// ExportXLSX renders the fact rows matching the filters as a spreadsheet
func (s *Service) ExportXLSX(ctx context.Context, filters *models.AnalyticsFilters) (*bytes.Buffer, error) {
	ctx, span := tracing.StartSpan(ctx, "query.ExportXLSX")
	defer span.End()

	if err := auth.Require(ctx, auth.CapabilityAnalytics); err != nil {
		return nil, err
	}

	facts, err := s.facts.ListFacts(ctx, withDefaultWindow(filters))
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Reports"
	f.SetSheetName(f.GetSheetName(0), sheet)

	header := []any{
		"Report ID", "Created", "Department ID", "Category ID", "Reporter ID",
		"First Response (s)", "Intervention (s)", "Resolution (s)",
		"Supports", "Status", "Latitude", "Longitude",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to build export")
	}

	for i, fact := range facts {
		row := []any{
			fact.ReportID,
			fact.CreatedAtTs.Format(time.RFC3339),
			fact.DepartmentID,
			int64Cell(fact.CategoryID),
			fact.UserID,
			int64Cell(fact.FirstResponseSecs),
			int64Cell(fact.InterventionSecs),
			int64Cell(fact.ResolutionSecs),
			fact.SupportCount,
			string(fact.FinalStatus),
			fact.Latitude,
			fact.Longitude,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to build export")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to write export")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to build export")
	}

	return buf, nil
}

func withDefaultWindow(filters *models.AnalyticsFilters) *models.AnalyticsFilters {
	if filters == nil {
		filters = &models.AnalyticsFilters{}
	}
	if filters.EndDate.IsZero() {
		filters.EndDate = time.Now().UTC()
	}
	if filters.StartDate.IsZero() {
		filters.StartDate = filters.EndDate.Add(-defaultWindow)
	}
	return filters
}

func summaryKey(filters *models.AnalyticsFilters) string {
	key := fmt.Sprintf("analytics:summary:%s:%s", filters.StartDate.Format("2006-01-02"), filters.EndDate.Format("2006-01-02"))
	if filters.DepartmentID != nil {
		key += fmt.Sprintf(":d%d", *filters.DepartmentID)
	}
	if filters.CategoryID != nil {
		key += fmt.Sprintf(":c%d", *filters.CategoryID)
	}
	if filters.Status != nil {
		key += ":" + string(*filters.Status)
	}
	if filters.BBox != nil {
		key += fmt.Sprintf(":b%.4f,%.4f,%.4f,%.4f", filters.BBox.MinLng, filters.BBox.MinLat, filters.BBox.MaxLng, filters.BBox.MaxLat)
	}
	return key
}

func int64Cell(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}
