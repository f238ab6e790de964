package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/dto"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/export"
)

type grievanceReader interface {
	FindByID(ctx context.Context, id string) (*models.Grievance, error)
	All(ctx context.Context) ([]models.Grievance, error)
}

type userLister interface {
	All(ctx context.Context) ([]models.User, error)
}

// AnalyticsOptions tunes the analytics service.
type AnalyticsOptions struct {
	Enabled         bool
	CacheTTL        time.Duration
	TopN            int
	PredictionLimit int
	Clock           Clock
}

// AnalyticsService computes dashboard analytics with cache-aside on the whole bundle.
type AnalyticsService struct {
	grievances grievanceReader
	users      userLister
	engine     *AnalyticsEngine
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	opts       AnalyticsOptions
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(grievances grievanceReader, users userLister, cache *CacheService, metrics *MetricsService, logger *zap.Logger, opts AnalyticsOptions) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultLeaderboardSize
	}
	if opts.PredictionLimit <= 0 {
		opts.PredictionLimit = DefaultPredictionLimit
	}
	if opts.Clock == nil {
		opts.Clock = systemClock
	}
	return &AnalyticsService{
		grievances: grievances,
		users:      users,
		engine:     NewAnalyticsEngine(WithAnalyticsClock(opts.Clock), WithLeaderboardSize(opts.TopN)),
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		opts:       opts,
	}
}

// Bundle returns the dashboard analytics. The boolean reports a cache hit.
func (s *AnalyticsService) Bundle(ctx context.Context) (*dto.AnalyticsBundle, bool, error) {
	if !s.opts.Enabled {
		return nil, false, appErrors.ErrFeatureDisabled
	}

	bundle, hit, err := cached(ctx, s.cache, cacheKey(analyticsCacheNamespace, "bundle"), s.opts.CacheTTL,
		func(ctx context.Context) (dto.AnalyticsBundle, error) {
			grievances, users, err := s.load(ctx)
			if err != nil {
				return dto.AnalyticsBundle{}, err
			}
			start := time.Now()
			bundle := s.compute(grievances, users)
			s.metrics.ObserveSnapshot(time.Since(start))
			return bundle, nil
		})
	if err != nil {
		return nil, false, err
	}
	return &bundle, hit, nil
}

// PredictGrievance estimates the resolution time of one grievance against the full history.
func (s *AnalyticsService) PredictGrievance(ctx context.Context, id string) (*models.PredictedResolutionTime, error) {
	if !s.opts.Enabled {
		return nil, appErrors.ErrFeatureDisabled
	}
	g, err := s.grievances.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		return nil, appErrors.Internal(err, "failed to load grievance")
	}
	all, err := s.timedAll(ctx)
	if err != nil {
		return nil, err
	}
	prediction := PredictResolutionTime(*g, all)
	return &prediction, nil
}

// Compare contrasts the snapshot as of windowDays ago with the current one.
// The earlier snapshot covers grievances created before the cutoff, with their current status.
func (s *AnalyticsService) Compare(ctx context.Context, windowDays int) (*dto.ComparisonResponse, error) {
	if !s.opts.Enabled {
		return nil, appErrors.ErrFeatureDisabled
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	grievances, users, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.opts.Clock()
	cutoff := now.Add(-time.Duration(windowDays) * day)
	earlier := make([]models.Grievance, 0, len(grievances))
	for _, g := range grievances {
		if g.CreatedAt.Before(cutoff) {
			earlier = append(earlier, g)
		}
	}

	past := NewAnalyticsEngine(WithAnalyticsClock(func() time.Time { return cutoff }), WithLeaderboardSize(s.opts.TopN))
	before := past.GenerateSnapshot(earlier, users)
	after := s.engine.GenerateSnapshot(grievances, users)
	return &dto.ComparisonResponse{
		WindowDays: windowDays,
		Before:     before,
		After:      after,
		Change:     ComparePerformance(before, after),
	}, nil
}

// Report renders the bundle as a downloadable document.
func (s *AnalyticsService) Report(ctx context.Context, format string) ([]byte, export.Renderer, error) {
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	bundle, _, err := s.Bundle(ctx)
	if err != nil {
		return nil, nil, err
	}
	payload, err := renderer.Render(buildReport(*bundle))
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to render report")
	}
	return payload, renderer, nil
}

// SystemMetrics returns the instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) compute(grievances []models.Grievance, users []models.User) dto.AnalyticsBundle {
	snapshot := s.engine.GenerateSnapshot(grievances, users)
	return dto.AnalyticsBundle{
		Snapshot:        snapshot,
		ResolutionTimes: ResolutionTimeMetrics(grievances),
		SentimentTrends: s.engine.SentimentTrends(grievances),
		Insights:        s.engine.GenerateInsights(snapshot),
		Predictions:     PredictActive(grievances, s.opts.PredictionLimit),
		Escalations:     CalculateEscalationMetrics(grievances),
		GeneratedAt:     snapshot.Timestamp,
	}
}

func (s *AnalyticsService) load(ctx context.Context) ([]models.Grievance, []models.User, error) {
	var (
		grievances []models.Grievance
		users      []models.User
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		grievances, err = s.timedAll(gctx)
		return err
	})
	group.Go(func() error {
		start := time.Now()
		var err error
		users, err = s.users.All(gctx)
		s.metrics.ObserveDBQuery("analytics_users", time.Since(start))
		if err != nil {
			return appErrors.Internal(err, "failed to load users")
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	return grievances, users, nil
}

func (s *AnalyticsService) timedAll(ctx context.Context) ([]models.Grievance, error) {
	start := time.Now()
	all, err := s.grievances.All(ctx)
	s.metrics.ObserveDBQuery("analytics_grievances", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load grievances")
	}
	return all, nil
}

func buildReport(b dto.AnalyticsBundle) export.Report {
	snap := b.Snapshot
	summary := export.Table{
		Title:   "Summary",
		Headers: []string{"metric", "value"},
		Rows: [][]string{
			{"generated_at", b.GeneratedAt.UTC().Format(time.RFC3339)},
			{"total_grievances", strconv.Itoa(snap.TotalGrievances)},
			{"resolved", strconv.Itoa(snap.ResolvedCount)},
			{"resolution_rate_pct", formatFloat(snap.ResolutionRate)},
			{"avg_resolution_days", formatFloat(snap.AvgResolutionTime)},
			{"avg_sentiment_score", formatFloat(snap.AverageSentimentScore)},
			{"escalated_grievances", strconv.Itoa(b.Escalations.EscalatedCount)},
		},
	}

	categories := export.Table{
		Title:   "Categories",
		Headers: []string{"category", "count", "active", "trend", "percent_change", "avg_resolution_days"},
	}
	for _, c := range snap.CategoryMetrics {
		categories.Rows = append(categories.Rows, []string{
			string(c.Category), strconv.Itoa(c.Count), strconv.Itoa(c.ActiveCount),
			string(c.Trend), formatFloat(c.PercentChange), formatFloat(c.AvgResolutionTime),
		})
	}

	insights := export.Table{
		Title:   "Insights",
		Headers: []string{"severity", "type", "title", "description"},
	}
	for _, a := range b.Insights {
		insights.Rows = append(insights.Rows, []string{string(a.Severity), string(a.Type), a.Title, a.Description})
	}

	return export.Report{
		Title:  "Grievance analytics",
		Tables: []export.Table{summary, categories, insights},
	}
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
