package models

import "time"

// Department is a municipal unit responsible for report categories
type Department struct {
	ID         int64      `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Code       string     `json:"code" db:"code"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	WebhookURL *string    `json:"webhook_url,omitempty" db:"webhook_url"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Category is a node in the report category hierarchy
type Category struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	ParentID  *int64     `json:"parent_id,omitempty" db:"parent_id"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Team is a field crew inside a department
type Team struct {
	ID           int64      `json:"id" db:"id"`
	DepartmentID int64      `json:"department_id" db:"department_id"`
	Name         string     `json:"name" db:"name"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// DepartmentHistory is the append-only audit trail of department moves.
// Rows are never updated or deleted.
type DepartmentHistory struct {
	ID                   int64     `json:"id" db:"id"`
	ReportID             int64     `json:"report_id" db:"report_id"`
	PreviousDepartmentID *int64    `json:"previous_department_id,omitempty" db:"previous_department_id"`
	NewDepartmentID      int64     `json:"new_department_id" db:"new_department_id"`
	Reason               string    `json:"reason" db:"reason"`
	ChangedByUserID      int64     `json:"changed_by_user_id" db:"changed_by_user_id"`
	ChangedAt            time.Time `json:"changed_at" db:"changed_at"`
}

// ReportSupport records one citizen's support of a report
type ReportSupport struct {
	ReportID  int64     `json:"report_id" db:"report_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
