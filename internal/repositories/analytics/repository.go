package analytics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/civicpulse/civicpulse/pkg/database"
	"github.com/civicpulse/civicpulse/pkg/models"
	"github.com/civicpulse/civicpulse/pkg/tracing"
)

// AnalyticsRepository defines access to the derived fact table
type AnalyticsRepository interface {
	ReplaceFacts(ctx context.Context, facts []models.ReportFact) error
	Summary(ctx context.Context, filters *models.AnalyticsFilters) (*models.SummaryStats, error)
	Funnel(ctx context.Context, filters *models.AnalyticsFilters) (*models.FunnelStats, error)
	CategoryDistribution(ctx context.Context, filters *models.AnalyticsFilters) ([]models.CategoryCount, error)
	TemporalDistribution(ctx context.Context, filters *models.AnalyticsFilters, granularity models.Granularity) ([]models.TimeBucket, error)
	SpatialDistribution(ctx context.Context, filters *models.AnalyticsFilters, cellSize float64) ([]models.SpatialCell, error)
	ListFacts(ctx context.Context, filters *models.AnalyticsFilters) ([]models.ReportFact, error)
}

// Repository implements AnalyticsRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new analytics repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ReplaceFacts rebuilds the fact table from the given rows. Rows are loaded
// into a staging table first and promoted in a single transaction, so readers
// see either the old snapshot or the new one, never a partial mix.
func (r *Repository) ReplaceFacts(ctx context.Context, facts []models.ReportFact) error {
	ctx, span := tracing.StartSpan(ctx, "AnalyticsRepository.ReplaceFacts")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to refresh facts")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.ExecContext(ctx, "TRUNCATE "+stagingTable); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to truncate staging table")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to refresh facts")
	}

	for start := 0; start < len(facts); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(facts) {
			end = len(facts)
		}

		vals := make([]any, 0, end-start)
		for i := start; i < end; i++ {
			vals = append(vals, &facts[i])
		}

		ib := factStruct.InsertInto(stagingTable, vals...)
		sql, args := ib.Build()

		if _, err := tx.ExecContext(ctx, sql, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to stage facts")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to refresh facts")
		}
	}

	if _, err := tx.ExecContext(ctx, "TRUNCATE "+factsTable); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to truncate fact table")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to refresh facts")
	}

	swap := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", factsTable, factColumns, factColumns, stagingTable)
	if _, err := tx.ExecContext(ctx, swap); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to promote staged facts")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to refresh facts")
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to refresh facts")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"rows": len(facts),
	}).Info("Replaced report facts")

	return nil
}

// Summary computes the headline dashboard aggregates. Averages ignore NULL
// durations and come back nil for an empty window.
func (r *Repository) Summary(ctx context.Context, filters *models.AnalyticsFilters) (*models.SummaryStats, error) {
	ctx, span := tracing.StartSpan(ctx, "AnalyticsRepository.Summary")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(
		"COUNT(*) AS total_report_count",
		"COUNT(*) FILTER (WHERE final_status = 'DONE') AS resolved_report_count",
		"COUNT(*) FILTER (WHERE final_status = 'REJECTED') AS rejected_report_count",
		"AVG(first_response_duration_secs) AS avg_first_response_secs",
		"AVG(intervention_duration_secs) AS avg_intervention_secs",
		"AVG(resolution_duration_secs) AS avg_resolution_secs",
		"COALESCE(SUM(support_count), 0) AS total_support_count",
		"COUNT(DISTINCT user_id) AS distinct_reporter_count",
	)
	sb.From(factsTable)
	applyFilters(sb, filters)

	sql, args := sb.Build()

	var row summaryRow
	err := r.db.GetContext(ctx, &row, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to compute summary")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute summary")
	}

	return toSummary(&row), nil
}

// Funnel computes the submitted/assigned/resolved counts. A fact with a
// first response duration was assigned at least once.
func (r *Repository) Funnel(ctx context.Context, filters *models.AnalyticsFilters) (*models.FunnelStats, error) {
	ctx, span := tracing.StartSpan(ctx, "AnalyticsRepository.Funnel")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(
		"COUNT(*) AS total",
		"COUNT(*) FILTER (WHERE first_response_duration_secs IS NOT NULL) AS assigned",
		"COUNT(*) FILTER (WHERE final_status = 'DONE') AS resolved",
	)
	sb.From(factsTable)
	applyFilters(sb, filters)

	sql, args := sb.Build()

	var row funnelRow
	err := r.db.GetContext(ctx, &row, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to compute funnel")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute funnel")
	}

	return &models.FunnelStats{
		Total:    row.Total,
		Assigned: row.Assigned,
		Resolved: row.Resolved,
	}, nil
}

// CategoryDistribution counts facts per category, largest first
func (r *Repository) CategoryDistribution(ctx context.Context, filters *models.AnalyticsFilters) ([]models.CategoryCount, error) {
	ctx, span := tracing.StartSpan(ctx, "AnalyticsRepository.CategoryDistribution")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(
		"f.category_id AS category_id",
		"COALESCE(c.name, 'uncategorized') AS category_name",
		"COUNT(*) AS count",
	)
	sb.From(factsTable + " f")
	sb.LeftJoin("categories c", "c.id = f.category_id")
	applyPrefixedFilters(sb, filters, "f.")
	sb.GroupBy("f.category_id", "c.name")
	sb.OrderBy("count").Desc()

	sql, args := sb.Build()

	var counts []models.CategoryCount
	err := r.db.SelectContext(ctx, &counts, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to compute category distribution")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute category distribution")
	}

	return counts, nil
}

// TemporalDistribution buckets facts by creation time
func (r *Repository) TemporalDistribution(ctx context.Context, filters *models.AnalyticsFilters, granularity models.Granularity) ([]models.TimeBucket, error) {
	ctx, span := tracing.StartSpan(ctx, "AnalyticsRepository.TemporalDistribution")
	defer span.End()

	var truncUnit string
	switch granularity {
	case models.GranularityDaily:
		truncUnit = "day"
	case models.GranularityWeekly:
		truncUnit = "week"
	case models.GranularityMonthly:
		truncUnit = "month"
	default:
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "unknown granularity")
	}

	sb := database.NewSelectBuilder()
	sb.Select(
		fmt.Sprintf("date_trunc('%s', created_at_ts) AS bucket", truncUnit),
		"COUNT(*) AS count",
	)
	sb.From(factsTable)
	applyFilters(sb, filters)
	sb.GroupBy("bucket")
	sb.OrderBy("bucket")

	sql, args := sb.Build()

	var buckets []models.TimeBucket
	err := r.db.SelectContext(ctx, &buckets, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to compute temporal distribution")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute temporal distribution")
	}

	return buckets, nil
}

// SpatialDistribution counts facts in a lat/lng grid of the given cell size
// in degrees
func (r *Repository) SpatialDistribution(ctx context.Context, filters *models.AnalyticsFilters, cellSize float64) ([]models.SpatialCell, error) {
	ctx, span := tracing.StartSpan(ctx, "AnalyticsRepository.SpatialDistribution")
	defer span.End()

	if cellSize <= 0 {
		cellSize = 0.01
	}
	cell := strconv.FormatFloat(cellSize, 'f', -1, 64)

	sb := database.NewSelectBuilder()
	sb.Select(
		fmt.Sprintf("FLOOR(latitude / %s) * %s AS cell_lat", cell, cell),
		fmt.Sprintf("FLOOR(longitude / %s) * %s AS cell_lng", cell, cell),
		"COUNT(*) AS count",
	)
	sb.From(factsTable)
	applyFilters(sb, filters)
	sb.GroupBy("cell_lat", "cell_lng")
	sb.OrderBy("count").Desc()

	sql, args := sb.Build()

	var cells []models.SpatialCell
	err := r.db.SelectContext(ctx, &cells, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to compute spatial distribution")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute spatial distribution")
	}

	return cells, nil
}

// ListFacts retrieves the raw fact rows matching the filters, oldest first
func (r *Repository) ListFacts(ctx context.Context, filters *models.AnalyticsFilters) ([]models.ReportFact, error) {
	ctx, span := tracing.StartSpan(ctx, "AnalyticsRepository.ListFacts")
	defer span.End()

	sb := factStruct.SelectFrom(factsTable)
	applyFilters(sb, filters)
	sb.OrderBy("created_at_ts")

	sql, args := sb.Build()

	var facts []models.ReportFact
	err := r.db.SelectContext(ctx, &facts, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list facts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list facts")
	}

	return facts, nil
}

func applyFilters(sb *database.SelectBuilder, filters *models.AnalyticsFilters) {
	applyPrefixedFilters(sb, filters, "")
}

func applyPrefixedFilters(sb *database.SelectBuilder, filters *models.AnalyticsFilters, prefix string) {
	if filters == nil {
		return
	}

	if !filters.StartDate.IsZero() {
		sb.Where(sb.GreaterEqualThan(prefix+"created_at_dt", filters.StartDate))
	}
	if !filters.EndDate.IsZero() {
		sb.Where(sb.LessEqualThan(prefix+"created_at_dt", filters.EndDate))
	}
	if filters.DepartmentID != nil {
		sb.Where(sb.Equal(prefix+"department_id", *filters.DepartmentID))
	}
	if filters.CategoryID != nil {
		sb.Where(sb.Equal(prefix+"category_id", *filters.CategoryID))
	}
	if filters.Status != nil {
		sb.Where(sb.Equal(prefix+"final_status", string(*filters.Status)))
	}
	if filters.BBox != nil {
		sb.Where(
			sb.Between(prefix+"latitude", filters.BBox.MinLat, filters.BBox.MaxLat),
			sb.Between(prefix+"longitude", filters.BBox.MinLng, filters.BBox.MaxLng),
		)
	}
}
