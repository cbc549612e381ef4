package report

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/lib/pq"

	"github.com/civicpulse/civicpulse/pkg/database"
	"github.com/civicpulse/civicpulse/pkg/models"
	"github.com/civicpulse/civicpulse/pkg/tracing"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// ReportRepository defines the interface for report data access
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) (*models.Report, error)
	GetByID(ctx context.Context, id int64) (*models.Report, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Report, error)
	List(ctx context.Context, query *models.ListReportsQuery) ([]*models.Report, error)
	ListForFacts(ctx context.Context) ([]*models.Report, error)
	Update(ctx context.Context, report *models.Report) (*models.Report, error)
	Delete(ctx context.Context, id int64) error
	AddSupport(ctx context.Context, reportID, userID int64) (int, error)
	RemoveSupport(ctx context.Context, reportID, userID int64) (int, error)
	BucketReports(ctx context.Context, bucket models.BucketType, overdueAfter time.Duration) (*models.BucketCount, error)
}

// Repository implements ReportRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new report repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new report and returns it with its generated id
func (r *Repository) Create(ctx context.Context, report *models.Report) (*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "ReportRepository.Create")
	defer span.End()

	now := Now()
	report.CreatedAt = now
	report.UpdatedAt = now
	if report.Status == "" {
		report.Status = models.ReportStatusOpen
	}

	row := FromReport(report)
	ib := reportStruct.InsertInto(reportsTable, row).Returning("id")
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id":       report.UserID,
		"report_type":   report.ReportType,
		"department_id": report.CurrentDepartmentID,
	}).Debug("Creating report")

	err := r.db.QueryRowxContext(ctx, sql, args...).Scan(&report.ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create report")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create report")
	}

	return report, nil
}

// GetByID retrieves a report by ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "ReportRepository.GetByID")
	defer span.End()

	sb := reportStruct.SelectFrom(reportsTable)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	sql, args := sb.Build()

	var row ReportRow
	err := r.db.GetContext(ctx, &row, sql, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "report not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get report")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get report")
	}

	return ToReport(&row), nil
}

// GetForUpdate retrieves a report inside the ambient transaction with a row
// lock, serializing concurrent transitions on the same report.
func (r *Repository) GetForUpdate(ctx context.Context, id int64) (*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "ReportRepository.GetForUpdate")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get report")
	}
	defer tx.Rollback(ctx)

	sb := reportStruct.SelectFrom(reportsTable)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)
	sb.SQL("FOR UPDATE")

	sql, args := sb.Build()

	var row ReportRow
	err = tx.GetContext(ctx, &row, sql, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "report not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to lock report")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get report")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get report")
	}

	return ToReport(&row), nil
}

// List retrieves reports matching the query, newest first
func (r *Repository) List(ctx context.Context, query *models.ListReportsQuery) ([]*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "ReportRepository.List")
	defer span.End()

	sb := reportStruct.SelectFrom(reportsTable)
	sb.Where(sb.IsNull("deleted_at"))

	if query.Status != nil {
		sb.Where(sb.Equal("status", string(*query.Status)))
	}
	if query.DepartmentID != nil {
		sb.Where(sb.Equal("current_department_id", *query.DepartmentID))
	}
	if query.CategoryID != nil {
		sb.Where(sb.Equal("category_id", *query.CategoryID))
	}
	if query.UserID != nil {
		sb.Where(sb.Equal("user_id", *query.UserID))
	}

	sb.OrderBy("created_at").Desc()

	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	sql, args := sb.Build()

	var rows []ReportRow
	err := r.db.SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list reports")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reports")
	}

	return ToReports(rows), nil
}

// ListForFacts retrieves every live report for the analytics rebuild
func (r *Repository) ListForFacts(ctx context.Context) ([]*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "ReportRepository.ListForFacts")
	defer span.End()

	sb := reportStruct.SelectFrom(reportsTable)
	sb.Where(sb.IsNull("deleted_at"))
	sb.OrderBy("id")

	sql, args := sb.Build()

	var rows []ReportRow
	err := r.db.SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load reports for analytics")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load reports")
	}

	return ToReports(rows), nil
}

// Update persists a modified report
func (r *Repository) Update(ctx context.Context, report *models.Report) (*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "ReportRepository.Update")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update report")
	}
	defer tx.Rollback(ctx)

	report.UpdatedAt = Now()

	ub := reportStruct.Update(reportsTable, FromReport(report))
	ub.Where(
		ub.Equal("id", report.ID),
		ub.IsNull("deleted_at"),
	)

	sql, args := ub.Build()

	result, err := tx.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update report")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update report")
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "report not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update report")
	}

	return report, nil
}

// Delete soft deletes a report
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "ReportRepository.Delete")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(reportsTable)
	ub.Set(
		ub.Assign("deleted_at", Now()),
		ub.Assign("updated_at", Now()),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.IsNull("deleted_at"),
	)

	sql, args := ub.Build()

	result, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete report")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete report")
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "report not found")
	}

	return nil
}

// AddSupport records a citizen's support and bumps the counter. A user may
// support a report at most once.
func (r *Repository) AddSupport(ctx context.Context, reportID, userID int64) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "ReportRepository.AddSupport")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to support report")
	}
	defer tx.Rollback(ctx)

	ib := database.NewInsertBuilder()
	ib.InsertInto(supportsTable)
	ib.Cols("report_id", "user_id", "created_at")
	ib.Values(reportID, userID, Now())

	sql, args := ib.Build()

	if _, err := tx.ExecContext(ctx, sql, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch string(pqErr.Code) {
			case uniqueViolation:
				return 0, httperror.NewHTTPError(http.StatusConflict, "report already supported by user")
			case foreignKeyViolation:
				return 0, httperror.NewHTTPError(http.StatusNotFound, "report not found")
			}
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to record support")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to support report")
	}

	var count int
	err = tx.GetContext(ctx, &count,
		"UPDATE reports SET support_count = support_count + 1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL RETURNING support_count",
		Now(), reportID)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return 0, httperror.NewHTTPError(http.StatusNotFound, "report not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to bump support count")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to support report")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to support report")
	}

	return count, nil
}

// RemoveSupport withdraws a citizen's support and decrements the counter
func (r *Repository) RemoveSupport(ctx context.Context, reportID, userID int64) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "ReportRepository.RemoveSupport")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to withdraw support")
	}
	defer tx.Rollback(ctx)

	db := database.NewDeleteBuilder()
	db.DeleteFrom(supportsTable)
	db.Where(
		db.Equal("report_id", reportID),
		db.Equal("user_id", userID),
	)

	sql, args := db.Build()

	result, err := tx.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to remove support")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to withdraw support")
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return 0, httperror.NewHTTPError(http.StatusNotFound, "support not found")
	}

	var count int
	err = tx.GetContext(ctx, &count,
		"UPDATE reports SET support_count = GREATEST(support_count - 1, 0), updated_at = $1 WHERE id = $2 AND deleted_at IS NULL RETURNING support_count",
		Now(), reportID)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return 0, httperror.NewHTTPError(http.StatusNotFound, "report not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to decrement support count")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to withdraw support")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to withdraw support")
	}

	return count, nil
}

// BucketReports counts the reports in one operational bucket and returns
// their ids, oldest first
func (r *Repository) BucketReports(ctx context.Context, bucket models.BucketType, overdueAfter time.Duration) (*models.BucketCount, error) {
	ctx, span := tracing.StartSpan(ctx, "ReportRepository.BucketReports")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id")
	sb.From(reportsTable)
	sb.Where(sb.IsNull("deleted_at"))

	switch bucket {
	case models.BucketUnassigned:
		sb.Where(
			sb.In("status", string(models.ReportStatusOpen), string(models.ReportStatusInReview)),
			"NOT EXISTS (SELECT 1 FROM assignments a WHERE a.report_id = reports.id AND a.status = 'ACTIVE' AND a.deleted_at IS NULL)",
		)
	case models.BucketOverdue:
		sb.Where(
			sb.NotIn("status", string(models.ReportStatusDone), string(models.ReportStatusRejected)),
			sb.LessThan("created_at", Now().Add(-overdueAfter)),
		)
	case models.BucketInProgress:
		sb.Where(sb.Equal("status", string(models.ReportStatusInProgress)))
	case models.BucketAwaitingApproval:
		sb.Where(sb.Equal("status", string(models.ReportStatusPendingApproval)))
	case models.BucketResolved:
		sb.Where(sb.Equal("status", string(models.ReportStatusDone)))
	default:
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "unknown bucket")
	}

	sb.OrderBy("created_at")

	sql, args := sb.Build()

	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to query bucket")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query bucket")
	}

	return &models.BucketCount{
		Bucket:    bucket,
		Count:     int64(len(ids)),
		ReportIDs: ids,
	}, nil
}
