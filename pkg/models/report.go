package models

import (
	"time"
)

// ReportStatus is the lifecycle status of a report
type ReportStatus string

const (
	ReportStatusOpen            ReportStatus = "OPEN"
	ReportStatusInReview        ReportStatus = "IN_REVIEW"
	ReportStatusInProgress      ReportStatus = "IN_PROGRESS"
	ReportStatusPendingApproval ReportStatus = "PENDING_APPROVAL"
	ReportStatusAwaitingInfo    ReportStatus = "AWAITING_INFORMATION"
	ReportStatusDone            ReportStatus = "DONE"
	ReportStatusRejected        ReportStatus = "REJECTED"
)

// Valid reports whether s is a known lifecycle status
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusOpen, ReportStatusInReview, ReportStatusInProgress,
		ReportStatusPendingApproval, ReportStatusAwaitingInfo,
		ReportStatusDone, ReportStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s allows no further transitions except reopen
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusDone || s == ReportStatusRejected
}

// ReportType is the legacy flat classification kept alongside the
// category hierarchy
type ReportType string

const (
	ReportTypePothole      ReportType = "POTHOLE"
	ReportTypeStreetLight  ReportType = "STREET_LIGHT"
	ReportTypeGarbage      ReportType = "GARBAGE"
	ReportTypeWaterLeakage ReportType = "WATER_LEAKAGE"
	ReportTypeTrafficSign  ReportType = "TRAFFIC_SIGN"
	ReportTypeParkDamage   ReportType = "PARK_DAMAGE"
	ReportTypeOther        ReportType = "OTHER"
)

// Report is a citizen-submitted issue record
type Report struct {
	ID                  int64        `json:"id" db:"id"`
	UserID              int64        `json:"user_id" db:"user_id"`
	ReportType          ReportType   `json:"report_type" db:"report_type"`
	CategoryID          *int64       `json:"category_id,omitempty" db:"category_id"`
	Status              ReportStatus `json:"status" db:"status"`
	SubStatus           *string      `json:"sub_status,omitempty" db:"sub_status"`
	CurrentDepartmentID int64        `json:"current_department_id" db:"current_department_id"`
	AssignedEmployeeID  *int64       `json:"assigned_employee_id,omitempty" db:"assigned_employee_id"`
	ClosedByUserID      *int64       `json:"closed_by_user_id,omitempty" db:"closed_by_user_id"`
	Title               string       `json:"title" db:"title"`
	Description         string       `json:"description" db:"description"`
	Address             string       `json:"address" db:"address"`
	Latitude            float64      `json:"latitude" db:"latitude"`
	Longitude           float64      `json:"longitude" db:"longitude"`
	MediaURLs           []string     `json:"media_urls,omitempty" db:"-"`
	SupportCount        int          `json:"support_count" db:"support_count"`
	RejectionReason     *string      `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ResolutionNotes     *string      `json:"resolution_notes,omitempty" db:"resolution_notes"`
	ResolvedAt          *time.Time   `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`
	DeletedAt           *time.Time   `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateReportRequest is the request to submit a new report
type CreateReportRequest struct {
	Title        string     `json:"title" validate:"required,max=200"`
	Description  string     `json:"description" validate:"required,max=4000"`
	ReportType   ReportType `json:"report_type" validate:"required"`
	CategoryID   *int64     `json:"category_id,omitempty"`
	DepartmentID int64      `json:"department_id" validate:"required"`
	Address      string     `json:"address" validate:"required,max=500"`
	Latitude     float64    `json:"latitude" validate:"min=-90,max=90"`
	Longitude    float64    `json:"longitude" validate:"min=-180,max=180"`
	MediaURLs    []string   `json:"media_urls,omitempty" validate:"dive,url"`
}

// ListReportsQuery filters and pages the report list
type ListReportsQuery struct {
	Status       *ReportStatus
	DepartmentID *int64
	CategoryID   *int64
	UserID       *int64
	Page         int
	PageSize     int
}
