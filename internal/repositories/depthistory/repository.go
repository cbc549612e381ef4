package depthistory

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/civicpulse/civicpulse/pkg/database"
	"github.com/civicpulse/civicpulse/pkg/models"
	"github.com/civicpulse/civicpulse/pkg/tracing"
)

// HistoryRepository defines the interface for the department audit trail.
// The trail is append-only; there are no update or delete operations.
type HistoryRepository interface {
	Append(ctx context.Context, entry *models.DepartmentHistory) (*models.DepartmentHistory, error)
	ListByReportID(ctx context.Context, reportID int64) ([]*models.DepartmentHistory, error)
}

// Repository implements HistoryRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new department history repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Append records a department move
func (r *Repository) Append(ctx context.Context, entry *models.DepartmentHistory) (*models.DepartmentHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "HistoryRepository.Append")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record department change")
	}
	defer tx.Rollback(ctx)

	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = Now()
	}

	row := FromHistory(entry)
	ib := historyStruct.InsertInto(historyTable, row).Returning("id")
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"report_id":         entry.ReportID,
		"new_department_id": entry.NewDepartmentID,
	}).Debug("Appending department history")

	err = tx.GetContext(ctx, &entry.ID, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to append department history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record department change")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record department change")
	}

	return entry, nil
}

// ListByReportID retrieves the report's department trail, oldest first
func (r *Repository) ListByReportID(ctx context.Context, reportID int64) ([]*models.DepartmentHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "HistoryRepository.ListByReportID")
	defer span.End()

	sb := historyStruct.SelectFrom(historyTable)
	sb.Where(sb.Equal("report_id", reportID))
	sb.OrderBy("changed_at")

	sql, args := sb.Build()

	var rows []HistoryRow
	err := r.db.SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list department history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list department history")
	}

	return ToHistories(rows), nil
}
