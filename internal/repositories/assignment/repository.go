package assignment

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/lib/pq"

	"github.com/civicpulse/civicpulse/pkg/database"
	"github.com/civicpulse/civicpulse/pkg/models"
	"github.com/civicpulse/civicpulse/pkg/tracing"
)

const uniqueViolation = "23505"

// AssignmentRepository defines the interface for assignment data access
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error)
	GetActiveByReportID(ctx context.Context, reportID int64) (*models.Assignment, error)
	ListByReportID(ctx context.Context, reportID int64) ([]*models.Assignment, error)
	Accept(ctx context.Context, reportID int64) (*models.Assignment, error)
	Complete(ctx context.Context, reportID int64) error
	Cancel(ctx context.Context, reportID int64) error
	FirstTimes(ctx context.Context) ([]models.AssignmentTimes, error)
}

// Repository implements AssignmentRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new assignment repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new ACTIVE assignment. A report may carry at most one
// ACTIVE assignment; the partial unique index turns a second insert into a
// conflict.
func (r *Repository) Create(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error) {
	ctx, span := tracing.StartSpan(ctx, "AssignmentRepository.Create")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create assignment")
	}
	defer tx.Rollback(ctx)

	now := Now()
	assignment.Status = models.AssignmentStatusActive
	assignment.AssignedAt = now
	assignment.CreatedAt = now
	assignment.UpdatedAt = now

	row := FromAssignment(assignment)
	ib := assignmentStruct.InsertInto(assignmentsTable, row).Returning("id")
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"report_id":     assignment.ReportID,
		"assignee_type": assignment.AssigneeType,
		"assignee_id":   assignment.AssigneeID(),
	}).Debug("Creating assignment")

	err = tx.GetContext(ctx, &assignment.ID, sql, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return nil, httperror.NewHTTPError(http.StatusConflict, "report already has an active assignment")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create assignment")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create assignment")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create assignment")
	}

	return assignment, nil
}

// GetActiveByReportID retrieves the report's ACTIVE assignment
func (r *Repository) GetActiveByReportID(ctx context.Context, reportID int64) (*models.Assignment, error) {
	ctx, span := tracing.StartSpan(ctx, "AssignmentRepository.GetActiveByReportID")
	defer span.End()

	sb := assignmentStruct.SelectFrom(assignmentsTable)
	sb.Where(
		sb.Equal("report_id", reportID),
		sb.Equal("status", string(models.AssignmentStatusActive)),
		sb.IsNull("deleted_at"),
	)

	sql, args := sb.Build()

	var row AssignmentRow
	err := r.db.GetContext(ctx, &row, sql, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "active assignment not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get active assignment")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get assignment")
	}

	return ToAssignment(&row), nil
}

// ListByReportID retrieves the report's full assignment ledger, newest first
func (r *Repository) ListByReportID(ctx context.Context, reportID int64) ([]*models.Assignment, error) {
	ctx, span := tracing.StartSpan(ctx, "AssignmentRepository.ListByReportID")
	defer span.End()

	sb := assignmentStruct.SelectFrom(assignmentsTable)
	sb.Where(
		sb.Equal("report_id", reportID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("assigned_at").Desc()

	sql, args := sb.Build()

	var rows []AssignmentRow
	err := r.db.SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list assignments")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list assignments")
	}

	return ToAssignments(rows), nil
}

// Accept stamps accepted_at on the report's ACTIVE assignment
func (r *Repository) Accept(ctx context.Context, reportID int64) (*models.Assignment, error) {
	ctx, span := tracing.StartSpan(ctx, "AssignmentRepository.Accept")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to accept assignment")
	}
	defer tx.Rollback(ctx)

	now := Now()

	ub := database.NewUpdateBuilder()
	ub.Update(assignmentsTable)
	ub.Set(
		ub.Assign("accepted_at", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("report_id", reportID),
		ub.Equal("status", string(models.AssignmentStatusActive)),
		ub.IsNull("accepted_at"),
		ub.IsNull("deleted_at"),
	)

	sql, args := ub.Build()

	result, err := tx.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to accept assignment")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to accept assignment")
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, httperror.NewHTTPError(http.StatusConflict, "no active unaccepted assignment")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to accept assignment")
	}

	return r.GetActiveByReportID(ctx, reportID)
}

// Complete closes the report's ACTIVE assignment as COMPLETED
func (r *Repository) Complete(ctx context.Context, reportID int64) error {
	return r.closeActive(ctx, reportID, models.AssignmentStatusCompleted, "completed_at")
}

// Cancel closes the report's ACTIVE assignment as CANCELLED. Reports without
// an active assignment are left untouched.
func (r *Repository) Cancel(ctx context.Context, reportID int64) error {
	return r.closeActive(ctx, reportID, models.AssignmentStatusCancelled, "cancelled_at")
}

func (r *Repository) closeActive(ctx context.Context, reportID int64, status models.AssignmentStatus, stampColumn string) error {
	ctx, span := tracing.StartSpan(ctx, "AssignmentRepository.closeActive")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to close assignment")
	}
	defer tx.Rollback(ctx)

	now := Now()

	ub := database.NewUpdateBuilder()
	ub.Update(assignmentsTable)
	ub.Set(
		ub.Assign("status", string(status)),
		ub.Assign(stampColumn, now),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("report_id", reportID),
		ub.Equal("status", string(models.AssignmentStatusActive)),
		ub.IsNull("deleted_at"),
	)

	sql, args := ub.Build()

	if _, err := tx.ExecContext(ctx, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to close assignment")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to close assignment")
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to close assignment")
	}

	return nil
}

// FirstTimes returns the earliest assigned_at and accepted_at per report,
// across the whole ledger, for the analytics rebuild
func (r *Repository) FirstTimes(ctx context.Context) ([]models.AssignmentTimes, error) {
	ctx, span := tracing.StartSpan(ctx, "AssignmentRepository.FirstTimes")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(
		"report_id",
		"MIN(assigned_at) AS first_assigned_at",
		"MIN(accepted_at) AS first_accepted_at",
	)
	sb.From(assignmentsTable)
	sb.Where(sb.IsNull("deleted_at"))
	sb.GroupBy("report_id")

	sql, args := sb.Build()

	var times []models.AssignmentTimes
	err := r.db.SelectContext(ctx, &times, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load assignment times")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load assignment times")
	}

	return times, nil
}
