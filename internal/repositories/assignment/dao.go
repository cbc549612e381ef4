package assignment

import (
	"database/sql"
	"time"

	"github.com/civicpulse/civicpulse/pkg/database"
	"github.com/civicpulse/civicpulse/pkg/models"
)

const (
	assignmentsTable = "assignments"
)

// AssignmentRow represents the database row for an assignment
type AssignmentRow struct {
	ID               sql.NullInt64  `db:"id" fieldopt:"omitempty"`
	ReportID         sql.NullInt64  `db:"report_id"`
	AssigneeType     sql.NullString `db:"assignee_type"`
	AssigneeUserID   sql.NullInt64  `db:"assignee_user_id"`
	AssigneeTeamID   sql.NullInt64  `db:"assignee_team_id"`
	Status           sql.NullString `db:"status"`
	AssignedByUserID sql.NullInt64  `db:"assigned_by_user_id"`
	Notes            sql.NullString `db:"notes"`
	AssignedAt       sql.NullTime   `db:"assigned_at"`
	AcceptedAt       sql.NullTime   `db:"accepted_at"`
	CompletedAt      sql.NullTime   `db:"completed_at"`
	CancelledAt      sql.NullTime   `db:"cancelled_at"`
	CreatedAt        sql.NullTime   `db:"created_at"`
	UpdatedAt        sql.NullTime   `db:"updated_at"`
	DeletedAt        sql.NullTime   `db:"deleted_at"`
}

var assignmentStruct = database.NewStruct(new(AssignmentRow))

// FromAssignment converts a domain model to a database row
func FromAssignment(a *models.Assignment) *AssignmentRow {
	return &AssignmentRow{
		ID:               nullInt64(a.ID),
		ReportID:         nullInt64(a.ReportID),
		AssigneeType:     sql.NullString{String: string(a.AssigneeType), Valid: a.AssigneeType != ""},
		AssigneeUserID:   nullInt64Ptr(a.AssigneeUserID),
		AssigneeTeamID:   nullInt64Ptr(a.AssigneeTeamID),
		Status:           sql.NullString{String: string(a.Status), Valid: a.Status != ""},
		AssignedByUserID: nullInt64(a.AssignedByUserID),
		Notes:            nullStringPtr(a.Notes),
		AssignedAt:       sql.NullTime{Time: a.AssignedAt, Valid: !a.AssignedAt.IsZero()},
		AcceptedAt:       nullTimePtr(a.AcceptedAt),
		CompletedAt:      nullTimePtr(a.CompletedAt),
		CancelledAt:      nullTimePtr(a.CancelledAt),
		CreatedAt:        sql.NullTime{Time: a.CreatedAt, Valid: !a.CreatedAt.IsZero()},
		UpdatedAt:        sql.NullTime{Time: a.UpdatedAt, Valid: !a.UpdatedAt.IsZero()},
		DeletedAt:        nullTimePtr(a.DeletedAt),
	}
}

// ToAssignment converts a database row to a domain model
func ToAssignment(row *AssignmentRow) *models.Assignment {
	return &models.Assignment{
		ID:               row.ID.Int64,
		ReportID:         row.ReportID.Int64,
		AssigneeType:     models.AssigneeType(row.AssigneeType.String),
		AssigneeUserID:   int64Ptr(row.AssigneeUserID),
		AssigneeTeamID:   int64Ptr(row.AssigneeTeamID),
		Status:           models.AssignmentStatus(row.Status.String),
		AssignedByUserID: row.AssignedByUserID.Int64,
		Notes:            stringPtr(row.Notes),
		AssignedAt:       row.AssignedAt.Time,
		AcceptedAt:       timePtr(row.AcceptedAt),
		CompletedAt:      timePtr(row.CompletedAt),
		CancelledAt:      timePtr(row.CancelledAt),
		CreatedAt:        row.CreatedAt.Time,
		UpdatedAt:        row.UpdatedAt.Time,
		DeletedAt:        timePtr(row.DeletedAt),
	}
}

// ToAssignments converts a slice of database rows to domain models
func ToAssignments(rows []AssignmentRow) []*models.Assignment {
	assignments := make([]*models.Assignment, len(rows))
	for i, row := range rows {
		assignments[i] = ToAssignment(&row)
	}
	return assignments
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullInt64Ptr(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullStringPtr(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTimePtr(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}
