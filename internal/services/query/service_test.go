package query

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

	"github.com/civicpulse/civicpulse/pkg/appctx"
	"github.com/civicpulse/civicpulse/pkg/auth"
	"github.com/civicpulse/civicpulse/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type fakeFactsRepo struct {
	lastFilters *models.AnalyticsFilters
	summary     *models.SummaryStats
	funnel      *models.FunnelStats
	facts       []models.ReportFact
}

func (r *fakeFactsRepo) ReplaceFacts(ctx context.Context, facts []models.ReportFact) error {
	return nil
}

func (r *fakeFactsRepo) Summary(ctx context.Context, filters *models.AnalyticsFilters) (*models.SummaryStats, error) {
	r.lastFilters = filters
	if r.summary != nil {
		return r.summary, nil
	}
	return &models.SummaryStats{}, nil
}

func (r *fakeFactsRepo) Funnel(ctx context.Context, filters *models.AnalyticsFilters) (*models.FunnelStats, error) {
	r.lastFilters = filters
	if r.funnel != nil {
		return r.funnel, nil
	}
	return &models.FunnelStats{}, nil
}

func (r *fakeFactsRepo) CategoryDistribution(ctx context.Context, filters *models.AnalyticsFilters) ([]models.CategoryCount, error) {
	r.lastFilters = filters
	return nil, nil
}

func (r *fakeFactsRepo) TemporalDistribution(ctx context.Context, filters *models.AnalyticsFilters, granularity models.Granularity) ([]models.TimeBucket, error) {
	r.lastFilters = filters
	return nil, nil
}

func (r *fakeFactsRepo) SpatialDistribution(ctx context.Context, filters *models.AnalyticsFilters, cellSize float64) ([]models.SpatialCell, error) {
	r.lastFilters = filters
	return nil, nil
}

func (r *fakeFactsRepo) ListFacts(ctx context.Context, filters *models.AnalyticsFilters) ([]models.ReportFact, error) {
	r.lastFilters = filters
	return r.facts, nil
}

type fakeBucketRepo struct {
	buckets map[models.BucketType]int64
}

func (r *fakeBucketRepo) Create(ctx context.Context, rpt *models.Report) (*models.Report, error) {
	return rpt, nil
}

func (r *fakeBucketRepo) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	return nil, nil
}

func (r *fakeBucketRepo) GetForUpdate(ctx context.Context, id int64) (*models.Report, error) {
	return nil, nil
}

func (r *fakeBucketRepo) List(ctx context.Context, q *models.ListReportsQuery) ([]*models.Report, error) {
	return nil, nil
}

func (r *fakeBucketRepo) ListForFacts(ctx context.Context) ([]*models.Report, error) {
	return nil, nil
}

func (r *fakeBucketRepo) Update(ctx context.Context, rpt *models.Report) (*models.Report, error) {
	return rpt, nil
}

func (r *fakeBucketRepo) Delete(ctx context.Context, id int64) error { return nil }

func (r *fakeBucketRepo) AddSupport(ctx context.Context, reportID, userID int64) (int, error) {
	return 0, nil
}

func (r *fakeBucketRepo) RemoveSupport(ctx context.Context, reportID, userID int64) (int, error) {
	return 0, nil
}

func (r *fakeBucketRepo) BucketReports(ctx context.Context, bucket models.BucketType, overdueAfter time.Duration) (*models.BucketCount, error) {
	return &models.BucketCount{Bucket: bucket, Count: r.buckets[bucket]}, nil
}

func analystCtx() context.Context {
	ctx := appctx.SetUserID(context.Background(), "5")
	return appctx.SetRoles(ctx, []string{auth.RoleSupervisor})
}

func TestSummaryDefaultWindow(t *testing.T) {
	facts := &fakeFactsRepo{}
	svc := NewService(getTestLogger(), facts, &fakeBucketRepo{}, nil, 0)

	_, err := svc.Summary(analystCtx(), nil)
	require.NoError(t, err)

	require.NotNil(t, facts.lastFilters)
	window := facts.lastFilters.EndDate.Sub(facts.lastFilters.StartDate)
	assert.Equal(t, defaultWindow, window)
}

func TestSummaryRequiresAnalyticsCapability(t *testing.T) {
	svc := NewService(getTestLogger(), &fakeFactsRepo{}, &fakeBucketRepo{}, nil, 0)

	ctx := appctx.SetUserID(context.Background(), "42")
	ctx = appctx.SetRoles(ctx, []string{auth.RoleCitizen})

	_, err := svc.Summary(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
}

func TestSummaryEmptyWindowIsZeros(t *testing.T) {
	facts := &fakeFactsRepo{summary: &models.SummaryStats{}}
	svc := NewService(getTestLogger(), facts, &fakeBucketRepo{}, nil, 0)

	stats, err := svc.Summary(analystCtx(), nil)
	require.NoError(t, err)

	assert.Zero(t, stats.TotalReportCount)
	assert.Zero(t, stats.ResolutionRate)
	assert.Nil(t, stats.AvgResolutionSecs)
}

func TestBucketsCoverEveryType(t *testing.T) {
	reports := &fakeBucketRepo{buckets: map[models.BucketType]int64{
		models.BucketInProgress: 3,
		models.BucketResolved:   12,
	}}
	svc := NewService(getTestLogger(), &fakeFactsRepo{}, reports, nil, 0)

	buckets, err := svc.Buckets(analystCtx())
	require.NoError(t, err)

	require.Len(t, buckets, len(bucketTypes))
	byType := map[models.BucketType]int64{}
	for _, b := range buckets {
		byType[b.Bucket] = b.Count
	}
	assert.Equal(t, int64(3), byType[models.BucketInProgress])
	assert.Equal(t, int64(12), byType[models.BucketResolved])
	assert.Zero(t, byType[models.BucketOverdue])
}

func TestDistributionsReturnEmptySlices(t *testing.T) {
	svc := NewService(getTestLogger(), &fakeFactsRepo{}, &fakeBucketRepo{}, nil, 0)
	ctx := analystCtx()

	categories, err := svc.CategoryDistribution(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, categories)
	assert.Empty(t, categories)

	temporal, err := svc.TemporalDistribution(ctx, nil, models.GranularityDaily)
	require.NoError(t, err)
	assert.NotNil(t, temporal)
	assert.Empty(t, temporal)

	spatial, err := svc.SpatialDistribution(ctx, nil, 0)
	require.NoError(t, err)
	assert.NotNil(t, spatial)
	assert.Empty(t, spatial)
}

func TestTemporalGranularity(t *testing.T) {
	facts := &fakeFactsRepo{}
	svc := NewService(getTestLogger(), facts, &fakeBucketRepo{}, nil, 0)
	ctx := analystCtx()

	t.Run("defaults to daily", func(t *testing.T) {
		_, err := svc.TemporalDistribution(ctx, nil, "")
		require.NoError(t, err)
	})

	t.Run("rejects an unknown granularity", func(t *testing.T) {
		_, err := svc.TemporalDistribution(ctx, nil, models.Granularity("hourly"))
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}

func TestExportXLSX(t *testing.T) {
	first := int64(3600)
	facts := &fakeFactsRepo{facts: []models.ReportFact{
		{
			ReportID:          1,
			CreatedAtTs:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			CreatedAtDt:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			DepartmentID:      1,
			UserID:            42,
			FirstResponseSecs: &first,
			FinalStatus:       models.ReportStatusDone,
		},
		{
			ReportID:     2,
			CreatedAtTs:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			CreatedAtDt:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			DepartmentID: 2,
			UserID:       43,
			FinalStatus:  models.ReportStatusOpen,
		},
	}}
	svc := NewService(getTestLogger(), facts, &fakeBucketRepo{}, nil, 0)

	buf, err := svc.ExportXLSX(analystCtx(), nil)
	require.NoError(t, err)
	assert.Greater(t, buf.Len(), 0)
}
