package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicpulse/civicpulse/pkg/database"
	"github.com/civicpulse/civicpulse/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger := getTestLogger()
	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), logger)
	return NewRepository(db, logger), mock
}

func summaryColumns() []string {
	return []string{
		"total_report_count", "resolved_report_count", "rejected_report_count",
		"avg_first_response_secs", "avg_intervention_secs", "avg_resolution_secs",
		"total_support_count", "distinct_reporter_count",
	}
}

func TestSummaryEmptyWindow(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total_report_count.+FROM report_facts`).
		WillReturnRows(sqlmock.NewRows(summaryColumns()).
			AddRow(0, 0, 0, nil, nil, nil, 0, 0))

	stats, err := repo.Summary(context.Background(), &models.AnalyticsFilters{
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Zero(t, stats.TotalReportCount)
	assert.Zero(t, stats.ResolutionRate)
	assert.Nil(t, stats.AvgFirstResponseSecs)
	assert.Nil(t, stats.AvgInterventionSecs)
	assert.Nil(t, stats.AvgResolutionSecs)
	assert.Zero(t, stats.TotalSupportCount)
}

func TestSummaryComputesResolutionRate(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total_report_count.+FROM report_facts`).
		WillReturnRows(sqlmock.NewRows(summaryColumns()).
			AddRow(40, 10, 5, 3600.5, nil, 86400.0, 120, 25))

	stats, err := repo.Summary(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, int64(40), stats.TotalReportCount)
	assert.Equal(t, 0.25, stats.ResolutionRate)
	require.NotNil(t, stats.AvgFirstResponseSecs)
	assert.Equal(t, 3600.5, *stats.AvgFirstResponseSecs)
	assert.Nil(t, stats.AvgInterventionSecs)
	require.NotNil(t, stats.AvgResolutionSecs)
	assert.Equal(t, 86400.0, *stats.AvgResolutionSecs)
}

func TestFunnel(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total.+FROM report_facts`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "assigned", "resolved"}).
			AddRow(10, 6, 4))

	funnel, err := repo.Funnel(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, int64(10), funnel.Total)
	assert.Equal(t, int64(6), funnel.Assigned)
	assert.Equal(t, int64(4), funnel.Resolved)
	assert.GreaterOrEqual(t, funnel.Total, funnel.Assigned)
	assert.GreaterOrEqual(t, funnel.Assigned, funnel.Resolved)
}

func TestReplaceFactsStagesThenSwaps(t *testing.T) {
	repo, mock := newMockRepository(t)

	facts := []models.ReportFact{
		{
			ReportID:     1,
			CreatedAtDt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			CreatedAtTs:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			DepartmentID: 1,
			UserID:       42,
			FinalStatus:  models.ReportStatusDone,
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE report_facts_staging`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO report_facts_staging`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`TRUNCATE report_facts$`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO report_facts \(.+\) SELECT .+ FROM report_facts_staging`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReplaceFacts(context.Background(), facts)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceFactsEmptySnapshot(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE report_facts_staging`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`TRUNCATE report_facts$`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO report_facts \(.+\) SELECT .+ FROM report_facts_staging`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.ReplaceFacts(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceFactsRollsBackOnStageFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE report_facts_staging`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.ReplaceFacts(context.Background(), nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
