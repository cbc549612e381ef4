package models

import "time"

// AssigneeType discriminates who an assignment targets
type AssigneeType string

const (
	AssigneeTypeUser AssigneeType = "USER"
	AssigneeTypeTeam AssigneeType = "TEAM"
)

// AssignmentStatus is the state of a ledger entry
type AssignmentStatus string

const (
	AssignmentStatusActive    AssignmentStatus = "ACTIVE"
	AssignmentStatusCompleted AssignmentStatus = "COMPLETED"
	AssignmentStatusCancelled AssignmentStatus = "CANCELLED"
)

// Assignment links a report to a responsible user or team for a bounded
// period. Rows are only mutated through lifecycle-governed transitions.
type Assignment struct {
	ID               int64            `json:"id" db:"id"`
	ReportID         int64            `json:"report_id" db:"report_id"`
	AssigneeType     AssigneeType     `json:"assignee_type" db:"assignee_type"`
	AssigneeUserID   *int64           `json:"assignee_user_id,omitempty" db:"assignee_user_id"`
	AssigneeTeamID   *int64           `json:"assignee_team_id,omitempty" db:"assignee_team_id"`
	Status           AssignmentStatus `json:"status" db:"status"`
	AssignedByUserID int64            `json:"assigned_by_user_id" db:"assigned_by_user_id"`
	Notes            *string          `json:"notes,omitempty" db:"notes"`
	AssignedAt       time.Time        `json:"assigned_at" db:"assigned_at"`
	AcceptedAt       *time.Time       `json:"accepted_at,omitempty" db:"accepted_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt      *time.Time       `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
	DeletedAt        *time.Time       `json:"deleted_at,omitempty" db:"deleted_at"`
}

// AssigneeID returns the id of whichever principal the assignment targets
func (a *Assignment) AssigneeID() int64 {
	if a.AssigneeType == AssigneeTypeTeam && a.AssigneeTeamID != nil {
		return *a.AssigneeTeamID
	}
	if a.AssigneeUserID != nil {
		return *a.AssigneeUserID
	}
	return 0
}

// CreateAssignmentRequest is the request to assign a report
type CreateAssignmentRequest struct {
	AssigneeType AssigneeType `json:"assignee_type" validate:"required,oneof=USER TEAM"`
	AssigneeID   int64        `json:"assignee_id" validate:"required"`
	Notes        *string      `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// AssignmentTimes carries the earliest ledger timestamps for a report,
// used by the analytics pipeline to derive durations
type AssignmentTimes struct {
	ReportID        int64      `db:"report_id"`
	FirstAssignedAt *time.Time `db:"first_assigned_at"`
	FirstAcceptedAt *time.Time `db:"first_accepted_at"`
}
