package report

import (
	"database/sql"
	"time"

	"github.com/civicpulse/civicpulse/pkg/database"
	"github.com/civicpulse/civicpulse/pkg/models"
)

const (
	reportsTable  = "reports"
	supportsTable = "report_supports"
)

// ReportRow represents the database row for a report
type ReportRow struct {
	ID                  sql.NullInt64            `db:"id" fieldopt:"omitempty"`
	UserID              sql.NullInt64            `db:"user_id"`
	ReportType          sql.NullString           `db:"report_type"`
	CategoryID          sql.NullInt64            `db:"category_id"`
	Status              sql.NullString           `db:"status"`
	SubStatus           sql.NullString           `db:"sub_status"`
	CurrentDepartmentID sql.NullInt64            `db:"current_department_id"`
	AssignedEmployeeID  sql.NullInt64            `db:"assigned_employee_id"`
	ClosedByUserID      sql.NullInt64            `db:"closed_by_user_id"`
	Title               sql.NullString           `db:"title"`
	Description         sql.NullString           `db:"description"`
	Address             sql.NullString           `db:"address"`
	Latitude            sql.NullFloat64          `db:"latitude"`
	Longitude           sql.NullFloat64          `db:"longitude"`
	MediaURLs           database.JSONB[[]string] `db:"media_urls"`
	SupportCount        sql.NullInt64            `db:"support_count"`
	RejectionReason     sql.NullString           `db:"rejection_reason"`
	ResolutionNotes     sql.NullString           `db:"resolution_notes"`
	ResolvedAt          sql.NullTime             `db:"resolved_at"`
	CreatedAt           sql.NullTime             `db:"created_at"`
	UpdatedAt           sql.NullTime             `db:"updated_at"`
	DeletedAt           sql.NullTime             `db:"deleted_at"`
}

var reportStruct = database.NewStruct(new(ReportRow))

// FromReport converts a domain model to a database row
func FromReport(r *models.Report) *ReportRow {
	return &ReportRow{
		ID:                  sql.NullInt64{Int64: r.ID, Valid: r.ID != 0},
		UserID:              sql.NullInt64{Int64: r.UserID, Valid: r.UserID != 0},
		ReportType:          sql.NullString{String: string(r.ReportType), Valid: r.ReportType != ""},
		CategoryID:          nullInt64Ptr(r.CategoryID),
		Status:              sql.NullString{String: string(r.Status), Valid: r.Status != ""},
		SubStatus:           nullStringPtr(r.SubStatus),
		CurrentDepartmentID: sql.NullInt64{Int64: r.CurrentDepartmentID, Valid: r.CurrentDepartmentID != 0},
		AssignedEmployeeID:  nullInt64Ptr(r.AssignedEmployeeID),
		ClosedByUserID:      nullInt64Ptr(r.ClosedByUserID),
		Title:               sql.NullString{String: r.Title, Valid: r.Title != ""},
		Description:         sql.NullString{String: r.Description, Valid: r.Description != ""},
		Address:             sql.NullString{String: r.Address, Valid: r.Address != ""},
		Latitude:            sql.NullFloat64{Float64: r.Latitude, Valid: true},
		Longitude:           sql.NullFloat64{Float64: r.Longitude, Valid: true},
		MediaURLs:           database.JSONB[[]string]{Data: r.MediaURLs},
		SupportCount:        sql.NullInt64{Int64: int64(r.SupportCount), Valid: true},
		RejectionReason:     nullStringPtr(r.RejectionReason),
		ResolutionNotes:     nullStringPtr(r.ResolutionNotes),
		ResolvedAt:          nullTimePtr(r.ResolvedAt),
		CreatedAt:           sql.NullTime{Time: r.CreatedAt, Valid: !r.CreatedAt.IsZero()},
		UpdatedAt:           sql.NullTime{Time: r.UpdatedAt, Valid: !r.UpdatedAt.IsZero()},
		DeletedAt:           nullTimePtr(r.DeletedAt),
	}
}

// ToReport converts a database row to a domain model
func ToReport(row *ReportRow) *models.Report {
	return &models.Report{
		ID:                  row.ID.Int64,
		UserID:              row.UserID.Int64,
		ReportType:          models.ReportType(row.ReportType.String),
		CategoryID:          int64Ptr(row.CategoryID),
		Status:              models.ReportStatus(row.Status.String),
		SubStatus:           stringPtr(row.SubStatus),
		CurrentDepartmentID: row.CurrentDepartmentID.Int64,
		AssignedEmployeeID:  int64Ptr(row.AssignedEmployeeID),
		ClosedByUserID:      int64Ptr(row.ClosedByUserID),
		Title:               row.Title.String,
		Description:         row.Description.String,
		Address:             row.Address.String,
		Latitude:            row.Latitude.Float64,
		Longitude:           row.Longitude.Float64,
		MediaURLs:           row.MediaURLs.Data,
		SupportCount:        int(row.SupportCount.Int64),
		RejectionReason:     stringPtr(row.RejectionReason),
		ResolutionNotes:     stringPtr(row.ResolutionNotes),
		ResolvedAt:          timePtr(row.ResolvedAt),
		CreatedAt:           row.CreatedAt.Time,
		UpdatedAt:           row.UpdatedAt.Time,
		DeletedAt:           timePtr(row.DeletedAt),
	}
}

// ToReports converts a slice of database rows to domain models
func ToReports(rows []ReportRow) []*models.Report {
	reports := make([]*models.Report, len(rows))
	for i, row := range rows {
		reports[i] = ToReport(&row)
	}
	return reports
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
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
