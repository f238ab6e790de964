package service

import (
	"math"
	"sort"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

const (
	// DefaultLeaderboardSize is the number of rows kept in each leaderboard.
	DefaultLeaderboardSize = 5
	trendWindow            = 30 * day
)

// AnalyticsEngine derives snapshots, trends and leaderboards from in-memory grievance collections.
type AnalyticsEngine struct {
	now   Clock
	newID func() string
	topN  int
}

// AnalyticsEngineOption customises an AnalyticsEngine.
type AnalyticsEngineOption func(*AnalyticsEngine)

// WithAnalyticsClock pins the engine's notion of now.
func WithAnalyticsClock(now Clock) AnalyticsEngineOption {
	return func(e *AnalyticsEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithAlertIDs overrides the alert identifier generator.
func WithAlertIDs(fn func() string) AnalyticsEngineOption {
	return func(e *AnalyticsEngine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithLeaderboardSize sets the leaderboard length used by GenerateSnapshot.
func WithLeaderboardSize(n int) AnalyticsEngineOption {
	return func(e *AnalyticsEngine) {
		if n > 0 {
			e.topN = n
		}
	}
}

// NewAnalyticsEngine constructs an engine with the system clock.
func NewAnalyticsEngine(opts ...AnalyticsEngineOption) *AnalyticsEngine {
	e := &AnalyticsEngine{now: systemClock, newID: newULID, topN: DefaultLeaderboardSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateSnapshot computes a fresh aggregate. users is optional and only fills missing submitter names.
func (e *AnalyticsEngine) GenerateSnapshot(grievances []models.Grievance, users []models.User) models.AnalyticsSnapshot {
	snapshot := models.AnalyticsSnapshot{
		Timestamp:       e.now(),
		TotalGrievances: len(grievances),
	}

	resolved := make([]models.Grievance, 0)
	for _, g := range grievances {
		switch g.Status {
		case models.StatusPending:
			snapshot.StatusDistribution.Pending++
		case models.StatusInProgress:
			snapshot.StatusDistribution.InProgress++
		case models.StatusResolved:
			snapshot.StatusDistribution.Resolved++
			resolved = append(resolved, g)
		case models.StatusRejected:
			snapshot.StatusDistribution.Rejected++
		}

		switch g.Priority {
		case models.PriorityLow:
			snapshot.PriorityDistribution.Low++
		case models.PriorityMedium:
			snapshot.PriorityDistribution.Medium++
		case models.PriorityHigh:
			snapshot.PriorityDistribution.High++
		}

		if sentiment, ok := g.SentimentValue(); ok {
			switch sentiment {
			case models.SentimentPositive:
				snapshot.SentimentDistribution.Positive++
			case models.SentimentNeutral:
				snapshot.SentimentDistribution.Neutral++
			case models.SentimentNegative:
				snapshot.SentimentDistribution.Negative++
			}
		}
	}

	snapshot.ResolvedCount = len(resolved)
	if snapshot.TotalGrievances > 0 {
		snapshot.ResolutionRate = float64(snapshot.ResolvedCount) / float64(snapshot.TotalGrievances) * 100
	}
	snapshot.AvgResolutionTime = AverageResolutionTime(resolved)
	snapshot.AverageSentimentScore = AverageSentimentScore(grievances)
	snapshot.CategoryMetrics = e.CategoryTrends(grievances)
	snapshot.TopComplainants = TopComplainants(withSubmitterNames(grievances, users), e.topN)
	snapshot.TopAssignees = TopAssignees(grievances, e.topN)

	return snapshot
}

// AverageResolutionTime is the mean days-to-resolution rounded to one decimal; 0 for no input.
func AverageResolutionTime(resolved []models.Grievance) float64 {
	if len(resolved) == 0 {
		return 0
	}
	total := 0.0
	for _, g := range resolved {
		total += g.ResolutionDays()
	}
	return roundTo(total/float64(len(resolved)), 1)
}

// AverageSentimentScore maps Positive to 1, Neutral to 0.5 and Negative to 0 and averages over
// grievances carrying sentiment. Without any sentiment data the neutral prior 0.5 is returned.
func AverageSentimentScore(grievances []models.Grievance) float64 {
	count := 0
	score := 0.0
	for _, g := range grievances {
		sentiment, ok := g.SentimentValue()
		if !ok {
			continue
		}
		count++
		switch sentiment {
		case models.SentimentPositive:
			score += 1
		case models.SentimentNegative:
		default:
			score += 0.5
		}
	}
	if count == 0 {
		return 0.5
	}
	return roundTo(score/float64(count), 2)
}

// CategoryTrends compares each category's last 30 days with everything older.
func (e *AnalyticsEngine) CategoryTrends(grievances []models.Grievance) []models.CategoryTrend {
	cutoff := e.now().Add(-trendWindow)
	trends := make([]models.CategoryTrend, 0, len(models.Categories))

	for _, category := range models.Categories {
		var current, previous, active int
		resolved := make([]models.Grievance, 0)
		total := 0
		for _, g := range grievances {
			if g.Category != category {
				continue
			}
			total++
			if g.CreatedAt.After(cutoff) {
				current++
			} else {
				previous++
			}
			if g.Status == models.StatusResolved {
				resolved = append(resolved, g)
			}
			if g.Status.IsOpen() {
				active++
			}
		}

		trend := models.TrendStable
		switch {
		case current > previous:
			trend = models.TrendUp
		case current < previous:
			trend = models.TrendDown
		}

		trends = append(trends, models.CategoryTrend{
			Category:          category,
			Count:             total,
			Trend:             trend,
			PercentChange:     percentChange(current, previous),
			AvgResolutionTime: AverageResolutionTime(resolved),
			ActiveCount:       active,
		})
	}
	return trends
}

// percentChange is rounded to a whole percent; an empty previous window reads as 100 when
// anything arrived and 0 otherwise.
func percentChange(current, previous int) float64 {
	if previous > 0 {
		return roundTo(float64(current-previous)/float64(previous)*100, 0)
	}
	if current > 0 {
		return 100
	}
	return 0
}

// ResolutionTimeMetrics summarises resolved grievances per category. The median is the element
// at index n/2 of the ascending list, which is the upper median for even n.
func ResolutionTimeMetrics(grievances []models.Grievance) []models.ResolutionTimeMetric {
	metrics := make([]models.ResolutionTimeMetric, 0, len(models.Categories))
	for _, category := range models.Categories {
		days := make([]float64, 0)
		for _, g := range grievances {
			if g.Category == category && g.Status == models.StatusResolved {
				days = append(days, g.ResolutionDays())
			}
		}
		metric := models.ResolutionTimeMetric{Category: category, TotalResolved: len(days)}
		if len(days) > 0 {
			sort.Float64s(days)
			sum := 0.0
			for _, d := range days {
				sum += d
			}
			metric.AvgDays = roundTo(sum/float64(len(days)), 1)
			metric.MinDays = roundTo(days[0], 1)
			metric.MaxDays = roundTo(days[len(days)-1], 1)
			metric.MedianDays = roundTo(days[len(days)/2], 1)
		}
		metrics = append(metrics, metric)
	}
	return metrics
}

// SentimentTrends buckets grievances created in the trailing 30 days by UTC date, ascending.
// Grievances without sentiment count as neutral.
func (e *AnalyticsEngine) SentimentTrends(grievances []models.Grievance) []models.SentimentTrend {
	cutoff := e.now().Add(-trendWindow)
	buckets := make(map[string]*models.SentimentTrend)
	for _, g := range grievances {
		if g.CreatedAt.Before(cutoff) {
			continue
		}
		key := g.CreatedAt.UTC().Format("2006-01-02")
		bucket, ok := buckets[key]
		if !ok {
			bucket = &models.SentimentTrend{Date: key}
			buckets[key] = bucket
		}
		sentiment, _ := g.SentimentValue()
		switch sentiment {
		case models.SentimentPositive:
			bucket.Positive++
		case models.SentimentNegative:
			bucket.Negative++
		default:
			bucket.Neutral++
		}
		bucket.Total++
	}

	trends := make([]models.SentimentTrend, 0, len(buckets))
	for _, bucket := range buckets {
		trends = append(trends, *bucket)
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Date < trends[j].Date })
	return trends
}

// TopComplainants ranks submitters by grievance count, descending; ties keep encounter order.
func TopComplainants(grievances []models.Grievance, limit int) []models.ComplainantStat {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	index := make(map[string]int)
	stats := make([]models.ComplainantStat, 0)
	for _, g := range grievances {
		if i, ok := index[g.UserID]; ok {
			stats[i].GrievanceCount++
			continue
		}
		index[g.UserID] = len(stats)
		stats = append(stats, models.ComplainantStat{UserID: g.UserID, UserName: g.UserName, GrievanceCount: 1})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].GrievanceCount > stats[j].GrievanceCount })
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// TopAssignees ranks staff by resolved grievances, descending; ties keep encounter order.
func TopAssignees(grievances []models.Grievance, limit int) []models.AssigneeStat {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	type bucket struct {
		id, name string
		resolved []models.Grievance
	}
	index := make(map[string]int)
	buckets := make([]*bucket, 0)
	for _, g := range grievances {
		if g.AssignedTo == nil {
			continue
		}
		i, ok := index[g.AssignedTo.ID]
		if !ok {
			i = len(buckets)
			index[g.AssignedTo.ID] = i
			buckets = append(buckets, &bucket{id: g.AssignedTo.ID, name: g.AssignedTo.Name})
		}
		if g.Status == models.StatusResolved {
			buckets[i].resolved = append(buckets[i].resolved, g)
		}
	}

	stats := make([]models.AssigneeStat, 0, len(buckets))
	for _, b := range buckets {
		stats = append(stats, models.AssigneeStat{
			UserID:            b.id,
			UserName:          b.name,
			ResolvedCount:     len(b.resolved),
			AvgResolutionTime: AverageResolutionTime(b.resolved),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].ResolvedCount > stats[j].ResolvedCount })
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// ComparePerformance reports after minus before for the headline metrics.
func ComparePerformance(before, after models.AnalyticsSnapshot) models.PerformanceComparison {
	return models.PerformanceComparison{
		ResolutionRateChange: after.ResolutionRate - before.ResolutionRate,
		AvgTimeChange:        after.AvgResolutionTime - before.AvgResolutionTime,
		SentimentChange:      after.AverageSentimentScore - before.AverageSentimentScore,
		TotalGrievanceChange: after.TotalGrievances - before.TotalGrievances,
	}
}

func withSubmitterNames(grievances []models.Grievance, users []models.User) []models.Grievance {
	if len(users) == 0 {
		return grievances
	}
	out := make([]models.Grievance, len(grievances))
	for i, g := range grievances {
		if g.UserName == "" {
			if u := findUser(users, g.UserID); u != nil {
				g.UserName = u.Name
			}
		}
		out[i] = g
	}
	return out
}

// roundTo rounds half up at the given number of decimals.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Floor(v*scale+0.5) / scale
}
