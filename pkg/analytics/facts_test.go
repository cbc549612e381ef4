package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/civicpulse/pkg/models"
)

func ts(t time.Time) *time.Time { return &t }

func TestBuildFact_Durations(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	assignedAt := t0.Add(1 * time.Hour)
	acceptedAt := t0.Add(3 * time.Hour)
	resolvedAt := t0.Add(50 * time.Hour)

	report := &models.Report{
		ID:                  7,
		UserID:              101,
		CurrentDepartmentID: 3,
		Status:              models.ReportStatusDone,
		Latitude:            41.015,
		Longitude:           28.979,
		SupportCount:        4,
		CreatedAt:           t0,
		ResolvedAt:          &resolvedAt,
	}
	times := models.AssignmentTimes{
		ReportID:        7,
		FirstAssignedAt: ts(assignedAt),
		FirstAcceptedAt: ts(acceptedAt),
	}

	fact := BuildFact(report, times, t0.Add(60*time.Hour))

	require.NotNil(t, fact.FirstResponseSecs)
	require.NotNil(t, fact.InterventionSecs)
	require.NotNil(t, fact.ResolutionSecs)
	assert.Equal(t, int64(3600), *fact.FirstResponseSecs)
	assert.Equal(t, int64(10800), *fact.InterventionSecs)
	assert.Equal(t, int64(180000), *fact.ResolutionSecs)
	assert.Equal(t, models.ReportStatusDone, fact.FinalStatus)
	assert.Equal(t, 4, fact.SupportCount)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), fact.CreatedAtDt)
}

func TestBuildFact_NoAssignmentYieldsNullDurations(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	report := &models.Report{ID: 9, Status: models.ReportStatusOpen, CreatedAt: t0}

	fact := BuildFact(report, models.AssignmentTimes{}, t0)

	assert.Nil(t, fact.FirstResponseSecs)
	assert.Nil(t, fact.InterventionSecs)
	assert.Nil(t, fact.ResolutionSecs)
}

// Regression: acceptance timestamps recorded before a later assignment row
// used to produce negative intervention durations when the baseline was
// assigned_at. The baseline is the report's creation time and the result is
// clamped, so it can never go below zero.
func TestBuildFact_InterventionNeverNegative(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	report := &models.Report{ID: 11, Status: models.ReportStatusInProgress, CreatedAt: t0}

	times := models.AssignmentTimes{
		ReportID:        11,
		FirstAssignedAt: ts(t0.Add(2 * time.Hour)),
		FirstAcceptedAt: ts(t0.Add(1 * time.Hour)), // accepted before the recorded assignment
	}

	fact := BuildFact(report, times, t0.Add(3*time.Hour))
	require.NotNil(t, fact.InterventionSecs)
	assert.GreaterOrEqual(t, *fact.InterventionSecs, int64(0))
	assert.Equal(t, int64(3600), *fact.InterventionSecs)

	// even a clock-skewed acceptance earlier than creation clamps to zero
	times.FirstAcceptedAt = ts(t0.Add(-10 * time.Minute))
	fact = BuildFact(report, times, t0)
	require.NotNil(t, fact.InterventionSecs)
	assert.Equal(t, int64(0), *fact.InterventionSecs)
}

func TestBuildFacts_JoinsTimesByReport(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	reports := []models.Report{
		{ID: 1, Status: models.ReportStatusInProgress, CreatedAt: t0},
		{ID: 2, Status: models.ReportStatusOpen, CreatedAt: t0},
	}
	times := []models.AssignmentTimes{
		{ReportID: 1, FirstAssignedAt: ts(t0.Add(30 * time.Minute))},
	}

	facts := BuildFacts(reports, times, t0.Add(time.Hour))
	require.Len(t, facts, 2)

	require.NotNil(t, facts[0].FirstResponseSecs)
	assert.Equal(t, int64(1800), *facts[0].FirstResponseSecs)
	assert.Nil(t, facts[1].FirstResponseSecs)
}

func TestBuildFacts_Deterministic(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	refreshedAt := t0.Add(2 * time.Hour)
	reports := []models.Report{
		{ID: 1, Status: models.ReportStatusInProgress, CreatedAt: t0},
		{ID: 2, Status: models.ReportStatusOpen, CreatedAt: t0.Add(time.Minute)},
	}
	times := []models.AssignmentTimes{
		{ReportID: 1, FirstAssignedAt: ts(t0.Add(15 * time.Minute)), FirstAcceptedAt: ts(t0.Add(45 * time.Minute))},
	}

	first := BuildFacts(reports, times, refreshedAt)
	second := BuildFacts(reports, times, refreshedAt)
	assert.Equal(t, first, second)
}
