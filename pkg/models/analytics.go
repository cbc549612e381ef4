package models

import "time"

// ReportFact is the derived, denormalized analytics row for one report.
// Never the system of record; safe to drop and rebuild at any time.
type ReportFact struct {
	ReportID          int64        `json:"report_id" db:"report_id"`
	CreatedAtDt       time.Time    `json:"created_at_dt" db:"created_at_dt"`
	CreatedAtTs       time.Time    `json:"created_at_ts" db:"created_at_ts"`
	DepartmentID      int64        `json:"department_id" db:"department_id"`
	CategoryID        *int64       `json:"category_id,omitempty" db:"category_id"`
	UserID            int64        `json:"user_id" db:"user_id"`
	FirstResponseSecs *int64       `json:"first_response_duration_secs,omitempty" db:"first_response_duration_secs"`
	InterventionSecs  *int64       `json:"intervention_duration_secs,omitempty" db:"intervention_duration_secs"`
	ResolutionSecs    *int64       `json:"resolution_duration_secs,omitempty" db:"resolution_duration_secs"`
	SupportCount      int          `json:"support_count" db:"support_count"`
	FinalStatus       ReportStatus `json:"final_status" db:"final_status"`
	Latitude          float64      `json:"latitude" db:"latitude"`
	Longitude         float64      `json:"longitude" db:"longitude"`
	LastUpdatedAt     time.Time    `json:"last_updated_at" db:"last_updated_at"`
}

// BoundingBox is a lng/lat rectangle filter (SRID 4326 semantics)
type BoundingBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// AnalyticsFilters bound every analytics query
type AnalyticsFilters struct {
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	DepartmentID *int64        `json:"department_id,omitempty"`
	CategoryID   *int64        `json:"category_id,omitempty"`
	Status       *ReportStatus `json:"status,omitempty"`
	BBox         *BoundingBox  `json:"bbox,omitempty"`
}

// SummaryStats is the dashboard headline block. Averages are computed only
// over rows with a non-NULL duration and are nil for empty windows.
type SummaryStats struct {
	TotalReportCount      int64    `json:"total_report_count"`
	ResolvedReportCount   int64    `json:"resolved_report_count"`
	RejectedReportCount   int64    `json:"rejected_report_count"`
	ResolutionRate        float64  `json:"resolution_rate"`
	AvgFirstResponseSecs  *float64 `json:"avg_first_response_secs,omitempty"`
	AvgInterventionSecs   *float64 `json:"avg_intervention_secs,omitempty"`
	AvgResolutionSecs     *float64 `json:"avg_resolution_secs,omitempty"`
	TotalSupportCount     int64    `json:"total_support_count"`
	DistinctReporterCount int64    `json:"distinct_reporter_count"`
}

// FunnelStats is the three-stage submission funnel. Counts are
// monotonically non-increasing: Total >= Assigned >= Resolved.
type FunnelStats struct {
	Total    int64 `json:"total"`
	Assigned int64 `json:"assigned"`
	Resolved int64 `json:"resolved"`
}

// BucketType names an operational drill-down bucket
type BucketType string

const (
	BucketUnassigned       BucketType = "UNASSIGNED"
	BucketOverdue          BucketType = "OVERDUE"
	BucketInProgress       BucketType = "IN_PROGRESS"
	BucketAwaitingApproval BucketType = "AWAITING_APPROVAL"
	BucketResolved         BucketType = "RESOLVED"
)

// BucketCount is one named bucket with its matching report ids
type BucketCount struct {
	Bucket    BucketType `json:"bucket"`
	Count     int64      `json:"count"`
	ReportIDs []int64    `json:"report_ids"`
}

// Granularity buckets temporal distributions
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

func (g Granularity) Valid() bool {
	return g == GranularityDaily || g == GranularityWeekly || g == GranularityMonthly
}

// CategoryCount is one slice of the category distribution
type CategoryCount struct {
	CategoryID   *int64 `json:"category_id" db:"category_id"`
	CategoryName string `json:"category_name" db:"category_name"`
	Count        int64  `json:"count" db:"count"`
}

// TimeBucket is one slice of the temporal distribution
type TimeBucket struct {
	Bucket time.Time `json:"bucket" db:"bucket"`
	Count  int64     `json:"count" db:"count"`
}

// SpatialCell is one grid cell of the spatial distribution
type SpatialCell struct {
	CellLat float64 `json:"cell_lat" db:"cell_lat"`
	CellLng float64 `json:"cell_lng" db:"cell_lng"`
	Count   int64   `json:"count" db:"count"`
}
