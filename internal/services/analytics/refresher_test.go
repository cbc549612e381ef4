package analytics

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicpulse/civicpulse/pkg/models"
	"github.com/civicpulse/civicpulse/pkg/redis"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type fakeLocker struct {
	err   error
	calls int
}

func (l *fakeLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	l.calls++
	if l.err != nil {
		return l.err
	}
	return fn()
}

type fakeReportSource struct {
	reports []*models.Report
}

func (r *fakeReportSource) Create(ctx context.Context, rpt *models.Report) (*models.Report, error) {
	return rpt, nil
}

func (r *fakeReportSource) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	return nil, nil
}

func (r *fakeReportSource) GetForUpdate(ctx context.Context, id int64) (*models.Report, error) {
	return nil, nil
}

func (r *fakeReportSource) List(ctx context.Context, q *models.ListReportsQuery) ([]*models.Report, error) {
	return nil, nil
}

func (r *fakeReportSource) ListForFacts(ctx context.Context) ([]*models.Report, error) {
	return r.reports, nil
}

func (r *fakeReportSource) Update(ctx context.Context, rpt *models.Report) (*models.Report, error) {
	return rpt, nil
}

func (r *fakeReportSource) Delete(ctx context.Context, id int64) error { return nil }

func (r *fakeReportSource) AddSupport(ctx context.Context, reportID, userID int64) (int, error) {
	return 0, nil
}

func (r *fakeReportSource) RemoveSupport(ctx context.Context, reportID, userID int64) (int, error) {
	return 0, nil
}

func (r *fakeReportSource) BucketReports(ctx context.Context, bucket models.BucketType, overdueAfter time.Duration) (*models.BucketCount, error) {
	return &models.BucketCount{Bucket: bucket}, nil
}

type fakeTimesSource struct {
	times []models.AssignmentTimes
}

func (r *fakeTimesSource) Create(ctx context.Context, a *models.Assignment) (*models.Assignment, error) {
	return a, nil
}

func (r *fakeTimesSource) GetActiveByReportID(ctx context.Context, reportID int64) (*models.Assignment, error) {
	return nil, nil
}

func (r *fakeTimesSource) ListByReportID(ctx context.Context, reportID int64) ([]*models.Assignment, error) {
	return nil, nil
}

func (r *fakeTimesSource) Accept(ctx context.Context, reportID int64) (*models.Assignment, error) {
	return nil, nil
}

func (r *fakeTimesSource) Complete(ctx context.Context, reportID int64) error { return nil }

func (r *fakeTimesSource) Cancel(ctx context.Context, reportID int64) error { return nil }

func (r *fakeTimesSource) FirstTimes(ctx context.Context) ([]models.AssignmentTimes, error) {
	return r.times, nil
}

type fakeFactsSink struct {
	replaced []models.ReportFact
}

func (r *fakeFactsSink) ReplaceFacts(ctx context.Context, facts []models.ReportFact) error {
	r.replaced = facts
	return nil
}

func (r *fakeFactsSink) Summary(ctx context.Context, filters *models.AnalyticsFilters) (*models.SummaryStats, error) {
	return &models.SummaryStats{}, nil
}

func (r *fakeFactsSink) Funnel(ctx context.Context, filters *models.AnalyticsFilters) (*models.FunnelStats, error) {
	return &models.FunnelStats{}, nil
}

func (r *fakeFactsSink) CategoryDistribution(ctx context.Context, filters *models.AnalyticsFilters) ([]models.CategoryCount, error) {
	return nil, nil
}

func (r *fakeFactsSink) TemporalDistribution(ctx context.Context, filters *models.AnalyticsFilters, granularity models.Granularity) ([]models.TimeBucket, error) {
	return nil, nil
}

func (r *fakeFactsSink) SpatialDistribution(ctx context.Context, filters *models.AnalyticsFilters, cellSize float64) ([]models.SpatialCell, error) {
	return nil, nil
}

func (r *fakeFactsSink) ListFacts(ctx context.Context, filters *models.AnalyticsFilters) ([]models.ReportFact, error) {
	return nil, nil
}

func TestRefreshRebuildsFacts(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	assigned := created.Add(2 * time.Hour)
	accepted := created.Add(3 * time.Hour)
	resolved := created.Add(48 * time.Hour)

	reports := &fakeReportSource{reports: []*models.Report{
		{
			ID: 1, UserID: 42, CurrentDepartmentID: 1,
			Status: models.ReportStatusDone, CreatedAt: created, ResolvedAt: &resolved,
		},
		{
			ID: 2, UserID: 43, CurrentDepartmentID: 1,
			Status: models.ReportStatusOpen, CreatedAt: created,
		},
	}}
	times := &fakeTimesSource{times: []models.AssignmentTimes{
		{ReportID: 1, FirstAssignedAt: &assigned, FirstAcceptedAt: &accepted},
	}}
	sink := &fakeFactsSink{}
	locker := &fakeLocker{}

	refresher := NewRefresher(getTestLogger(), reports, times, sink, locker)

	rows, err := refresher.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, rows)
	assert.Equal(t, 1, locker.calls)
	require.Len(t, sink.replaced, 2)

	byID := map[int64]models.ReportFact{}
	for _, f := range sink.replaced {
		byID[f.ReportID] = f
	}

	resolvedFact := byID[1]
	require.NotNil(t, resolvedFact.FirstResponseSecs)
	assert.Equal(t, int64(2*3600), *resolvedFact.FirstResponseSecs)
	require.NotNil(t, resolvedFact.InterventionSecs)
	assert.Equal(t, int64(3*3600), *resolvedFact.InterventionSecs)
	require.NotNil(t, resolvedFact.ResolutionSecs)
	assert.Equal(t, int64(48*3600), *resolvedFact.ResolutionSecs)

	openFact := byID[2]
	assert.Nil(t, openFact.FirstResponseSecs)
	assert.Nil(t, openFact.InterventionSecs)
	assert.Nil(t, openFact.ResolutionSecs)
}

func TestRefreshAlreadyRunning(t *testing.T) {
	refresher := NewRefresher(
		getTestLogger(),
		&fakeReportSource{},
		&fakeTimesSource{},
		&fakeFactsSink{},
		&fakeLocker{err: redis.ErrLockNotAcquired},
	)

	_, err := refresher.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
}

func TestSchedulerDisabledWithoutInterval(t *testing.T) {
	refresher := NewRefresher(
		getTestLogger(), &fakeReportSource{}, &fakeTimesSource{}, &fakeFactsSink{}, &fakeLocker{},
	)
	scheduler := NewScheduler(refresher, 0, getTestLogger())

	done := make(chan struct{})
	go func() {
		scheduler.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler should return immediately when disabled")
	}
}
