package depthistory

import (
	"database/sql"
	"time"

	"github.com/civicpulse/civicpulse/pkg/database"
	"github.com/civicpulse/civicpulse/pkg/models"
)

const (
	historyTable = "department_history"
)

// HistoryRow represents the database row for a department history entry
type HistoryRow struct {
	ID                   sql.NullInt64  `db:"id" fieldopt:"omitempty"`
	ReportID             sql.NullInt64  `db:"report_id"`
	PreviousDepartmentID sql.NullInt64  `db:"previous_department_id"`
	NewDepartmentID      sql.NullInt64  `db:"new_department_id"`
	Reason               sql.NullString `db:"reason"`
	ChangedByUserID      sql.NullInt64  `db:"changed_by_user_id"`
	ChangedAt            sql.NullTime   `db:"changed_at"`
}

var historyStruct = database.NewStruct(new(HistoryRow))

// FromHistory converts a domain model to a database row
func FromHistory(h *models.DepartmentHistory) *HistoryRow {
	row := &HistoryRow{
		ID:              sql.NullInt64{Int64: h.ID, Valid: h.ID != 0},
		ReportID:        sql.NullInt64{Int64: h.ReportID, Valid: h.ReportID != 0},
		NewDepartmentID: sql.NullInt64{Int64: h.NewDepartmentID, Valid: h.NewDepartmentID != 0},
		Reason:          sql.NullString{String: h.Reason, Valid: h.Reason != ""},
		ChangedByUserID: sql.NullInt64{Int64: h.ChangedByUserID, Valid: h.ChangedByUserID != 0},
		ChangedAt:       sql.NullTime{Time: h.ChangedAt, Valid: !h.ChangedAt.IsZero()},
	}
	if h.PreviousDepartmentID != nil {
		row.PreviousDepartmentID = sql.NullInt64{Int64: *h.PreviousDepartmentID, Valid: true}
	}
	return row
}

// ToHistory converts a database row to a domain model
func ToHistory(row *HistoryRow) *models.DepartmentHistory {
	h := &models.DepartmentHistory{
		ID:              row.ID.Int64,
		ReportID:        row.ReportID.Int64,
		NewDepartmentID: row.NewDepartmentID.Int64,
		Reason:          row.Reason.String,
		ChangedByUserID: row.ChangedByUserID.Int64,
		ChangedAt:       row.ChangedAt.Time,
	}
	if row.PreviousDepartmentID.Valid {
		prev := row.PreviousDepartmentID.Int64
		h.PreviousDepartmentID = &prev
	}
	return h
}

// ToHistories converts a slice of database rows to domain models
func ToHistories(rows []HistoryRow) []*models.DepartmentHistory {
	entries := make([]*models.DepartmentHistory, len(rows))
	for i, row := range rows {
		entries[i] = ToHistory(&row)
	}
	return entries
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}
