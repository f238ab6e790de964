package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
)

func newTestAnalyticsService(store *memoryGrievances, cacheRepo *stubCacheRepo) *AnalyticsService {
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), cacheRepo != nil)
	return NewAnalyticsService(store, &memoryUsers{items: testUsers()}, cache, NewMetricsService(), zap.NewNop(), AnalyticsOptions{
		Enabled: true,
		Clock:   fixedClock,
	})
}

func analyticsFixture() *memoryGrievances {
	return newMemoryGrievances(
		newGrievance("g1", 40*day, withCategory(models.CategoryAcademic), resolvedAfter(2)),
		newGrievance("g2", 10*day, withCategory(models.CategoryAcademic)),
		newGrievance("g3", 5*day, withCategory(models.CategoryHostel), withSentiment(models.SentimentNegative)),
		newGrievance("g4", 2*day, withCategory(models.CategoryHostel), withPriority(models.PriorityHigh)),
	)
}

func TestAnalyticsServiceBundleCaching(t *testing.T) {
	store := analyticsFixture()
	svc := newTestAnalyticsService(store, &stubCacheRepo{})
	ctx := context.Background()

	bundle, hit, err := svc.Bundle(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, store.allCalls)
	assert.Equal(t, 4, bundle.Snapshot.TotalGrievances)
	assert.Equal(t, 1, bundle.Snapshot.ResolvedCount)
	assert.Len(t, bundle.Predictions, 3)
	assert.Equal(t, testNow, bundle.GeneratedAt)

	cached, hit, err := svc.Bundle(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, store.allCalls)
	assert.Equal(t, bundle.Snapshot.TotalGrievances, cached.Snapshot.TotalGrievances)
	assert.Equal(t, bundle.Snapshot.ResolutionRate, cached.Snapshot.ResolutionRate)
}

func TestAnalyticsServiceBundleWithoutCache(t *testing.T) {
	store := analyticsFixture()
	svc := newTestAnalyticsService(store, nil)

	_, hit, err := svc.Bundle(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	_, _, err = svc.Bundle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.allCalls)
}

func TestAnalyticsServiceErrorPassthrough(t *testing.T) {
	store := newMemoryGrievances()
	store.err = assert.AnError
	svc := newTestAnalyticsService(store, nil)

	_, _, err := svc.Bundle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAnalyticsServiceDisabled(t *testing.T) {
	svc := NewAnalyticsService(newMemoryGrievances(), &memoryUsers{}, nil, nil, nil, AnalyticsOptions{})

	_, _, err := svc.Bundle(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrFeatureDisabled)
	_, err = svc.PredictGrievance(context.Background(), "g1")
	assert.ErrorIs(t, err, appErrors.ErrFeatureDisabled)
}

func TestAnalyticsServicePredictGrievance(t *testing.T) {
	svc := newTestAnalyticsService(analyticsFixture(), nil)

	prediction, err := svc.PredictGrievance(context.Background(), "g2")
	require.NoError(t, err)
	assert.Equal(t, "g2", prediction.GrievanceID)
	assert.Equal(t, models.CategoryAcademic, prediction.Category)
	assert.Greater(t, prediction.EstimatedDaysToResolve, 0.0)

	_, err = svc.PredictGrievance(context.Background(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAnalyticsServiceCompare(t *testing.T) {
	svc := newTestAnalyticsService(analyticsFixture(), nil)

	cmp, err := svc.Compare(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cmp.WindowDays)
	assert.Equal(t, 2, cmp.Before.TotalGrievances)
	assert.Equal(t, 4, cmp.After.TotalGrievances)
	assert.Equal(t, testNow.Add(-7*day), cmp.Before.Timestamp)
}

func TestAnalyticsServiceReport(t *testing.T) {
	svc := newTestAnalyticsService(analyticsFixture(), nil)

	payload, renderer, err := svc.Report(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", renderer.Extension())
	assert.Contains(t, string(payload), "total_grievances,4")
	assert.Contains(t, string(payload), "category,count,active,trend,percent_change,avg_resolution_days")

	pdf, _, err := svc.Report(context.Background(), "pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	_, _, err = svc.Report(context.Background(), "xlsx")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
