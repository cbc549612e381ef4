// Package analytics computes derived fact rows from report lifecycle data.
// Pure functions here are the unit-testable heart of the materialization
// pipeline; reading sources and swapping snapshots belongs to the
// repositories and services.
package analytics

import (
	"time"

	"github.com/civicpulse/civicpulse/pkg/models"
)

// BuildFact computes the denormalized analytics row for one report.
//
// All durations use the report's own creation time as the baseline. The
// intervention duration in particular must never be computed from
// assigned_at: an acceptance recorded before a later assignment row would
// yield a negative duration.
func BuildFact(report *models.Report, times models.AssignmentTimes, refreshedAt time.Time) models.ReportFact {
	fact := models.ReportFact{
		ReportID:      report.ID,
		CreatedAtDt:   dateOf(report.CreatedAt),
		CreatedAtTs:   report.CreatedAt,
		DepartmentID:  report.CurrentDepartmentID,
		CategoryID:    report.CategoryID,
		UserID:        report.UserID,
		SupportCount:  report.SupportCount,
		FinalStatus:   report.Status,
		Latitude:      report.Latitude,
		Longitude:     report.Longitude,
		LastUpdatedAt: refreshedAt,
	}

	fact.FirstResponseSecs = durationSecs(report.CreatedAt, times.FirstAssignedAt)
	fact.InterventionSecs = durationSecs(report.CreatedAt, times.FirstAcceptedAt)
	fact.ResolutionSecs = durationSecs(report.CreatedAt, report.ResolvedAt)

	return fact
}

// BuildFacts maps reports to fact rows, joining on the earliest assignment
// timestamps per report. Reports without ledger entries get NULL durations.
func BuildFacts(reports []models.Report, times []models.AssignmentTimes, refreshedAt time.Time) []models.ReportFact {
	byReport := make(map[int64]models.AssignmentTimes, len(times))
	for _, t := range times {
		byReport[t.ReportID] = t
	}

	facts := make([]models.ReportFact, 0, len(reports))
	for i := range reports {
		facts = append(facts, BuildFact(&reports[i], byReport[reports[i].ID], refreshedAt))
	}
	return facts
}

// durationSecs returns whole seconds from baseline to ts, nil when ts is
// unset, and never negative.
func durationSecs(baseline time.Time, ts *time.Time) *int64 {
	if ts == nil {
		return nil
	}
	secs := int64(ts.Sub(baseline) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &secs
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
