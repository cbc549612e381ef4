package analytics

import (
	"database/sql"
	"time"

	"github.com/civicpulse/civicpulse/pkg/database"
	"github.com/civicpulse/civicpulse/pkg/models"
)

const (
	factsTable   = "report_facts"
	stagingTable = "report_facts_staging"

	// insertChunkSize bounds the parameter count of one staging insert
	insertChunkSize = 500
)

var factStruct = database.NewStruct(new(models.ReportFact))

// factColumns is the canonical column order used by the staging swap
const factColumns = "report_id, created_at_dt, created_at_ts, department_id, category_id, user_id, " +
	"first_response_duration_secs, intervention_duration_secs, resolution_duration_secs, " +
	"support_count, final_status, latitude, longitude, last_updated_at"

// summaryRow is the scan target for the summary aggregate
type summaryRow struct {
	TotalReportCount      int64           `db:"total_report_count"`
	ResolvedReportCount   int64           `db:"resolved_report_count"`
	RejectedReportCount   int64           `db:"rejected_report_count"`
	AvgFirstResponseSecs  sql.NullFloat64 `db:"avg_first_response_secs"`
	AvgInterventionSecs   sql.NullFloat64 `db:"avg_intervention_secs"`
	AvgResolutionSecs     sql.NullFloat64 `db:"avg_resolution_secs"`
	TotalSupportCount     int64           `db:"total_support_count"`
	DistinctReporterCount int64           `db:"distinct_reporter_count"`
}

func toSummary(row *summaryRow) *models.SummaryStats {
	stats := &models.SummaryStats{
		TotalReportCount:      row.TotalReportCount,
		ResolvedReportCount:   row.ResolvedReportCount,
		RejectedReportCount:   row.RejectedReportCount,
		TotalSupportCount:     row.TotalSupportCount,
		DistinctReporterCount: row.DistinctReporterCount,
	}
	if row.TotalReportCount > 0 {
		stats.ResolutionRate = float64(row.ResolvedReportCount) / float64(row.TotalReportCount)
	}
	if row.AvgFirstResponseSecs.Valid {
		v := row.AvgFirstResponseSecs.Float64
		stats.AvgFirstResponseSecs = &v
	}
	if row.AvgInterventionSecs.Valid {
		v := row.AvgInterventionSecs.Float64
		stats.AvgInterventionSecs = &v
	}
	if row.AvgResolutionSecs.Valid {
		v := row.AvgResolutionSecs.Float64
		stats.AvgResolutionSecs = &v
	}
	return stats
}

// funnelRow is the scan target for the funnel aggregate
type funnelRow struct {
	Total    int64 `db:"total"`
	Assigned int64 `db:"assigned"`
	Resolved int64 `db:"resolved"`
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}
