package models

import "time"

// StatusDistribution tallies grievances per lifecycle state.
type StatusDistribution struct {
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
	Rejected   int `json:"rejected"`
}

// PriorityDistribution tallies grievances per priority.
type PriorityDistribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// SentimentDistribution tallies grievances per classifier sentiment.
// Grievances without sentiment data count toward no bucket.
type SentimentDistribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Trend is the direction of a category's recent volume.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// CategoryTrend compares a category's last 30 days with everything before.
type CategoryTrend struct {
	Category          GrievanceCategory `json:"category"`
	Count             int               `json:"count"`
	Trend             Trend             `json:"trend"`
	PercentChange     float64           `json:"percentChange"`
	AvgResolutionTime float64           `json:"avgResolutionTime"`
	ActiveCount       int               `json:"activeCount"`
}

// ResolutionTimeMetric summarises days-to-resolution for one category.
type ResolutionTimeMetric struct {
	Category      GrievanceCategory `json:"category"`
	AvgDays       float64           `json:"avgDays"`
	MinDays       float64           `json:"minDays"`
	MaxDays       float64           `json:"maxDays"`
	MedianDays    float64           `json:"medianDays"`
	TotalResolved int               `json:"totalResolved"`
}

// SentimentTrend tallies sentiment for one UTC calendar date.
type SentimentTrend struct {
	Date     string `json:"date"`
	Positive int    `json:"positive"`
	Neutral  int    `json:"neutral"`
	Negative int    `json:"negative"`
	Total    int    `json:"total"`
}

// ComplainantStat is a leaderboard row of submitters.
type ComplainantStat struct {
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
	GrievanceCount int    `json:"grievanceCount"`
}

// AssigneeStat is a leaderboard row of staff.
type AssigneeStat struct {
	UserID            string  `json:"userId"`
	UserName          string  `json:"userName"`
	ResolvedCount     int     `json:"resolvedCount"`
	AvgResolutionTime float64 `json:"avgResolutionTime"`
}

// AnalyticsSnapshot is a point-in-time aggregate. It is computed fresh and never mutated.
type AnalyticsSnapshot struct {
	Timestamp             time.Time             `json:"timestamp"`
	TotalGrievances       int                   `json:"totalGrievances"`
	ResolvedCount         int                   `json:"resolvedCount"`
	ResolutionRate        float64               `json:"resolutionRate"`
	AvgResolutionTime     float64               `json:"avgResolutionTime"`
	StatusDistribution    StatusDistribution    `json:"statusDistribution"`
	PriorityDistribution  PriorityDistribution  `json:"priorityDistribution"`
	SentimentDistribution SentimentDistribution `json:"sentimentDistribution"`
	AverageSentimentScore float64               `json:"averageSentimentScore"`
	CategoryMetrics       []CategoryTrend       `json:"categoryMetrics"`
	TopComplainants       []ComplainantStat     `json:"topComplainants"`
	TopAssignees          []AssigneeStat        `json:"topAssignees"`
}

// PredictionFactors exposes the inputs of a resolution-time estimate.
type PredictionFactors struct {
	CategoryAvg    float64 `json:"categoryAvg"`
	PriorityFactor float64 `json:"priorityFactor"`
	WorkloadFactor float64 `json:"workloadFactor"`
	HistoricalData float64 `json:"historicalData"`
}

// PredictedResolutionTime is the estimate for one active grievance.
type PredictedResolutionTime struct {
	GrievanceID            string            `json:"grievanceId"`
	Category               GrievanceCategory `json:"category"`
	Priority               Priority          `json:"priority"`
	EstimatedDaysToResolve float64           `json:"estimatedDaysToResolve"`
	ConfidenceScore        float64           `json:"confidenceScore"`
	Factors                PredictionFactors `json:"factors"`
}

// AlertSeverity ranks insight alerts.
type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "low"
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// AlertType classifies insight alerts.
type AlertType string

const (
	AlertTrend          AlertType = "trend"
	AlertAnomaly        AlertType = "anomaly"
	AlertPrediction     AlertType = "prediction"
	AlertRecommendation AlertType = "recommendation"
)

// InsightAlert is a derived, ephemeral observation about a snapshot.
type InsightAlert struct {
	ID          string                 `json:"id"`
	Type        AlertType              `json:"type"`
	Severity    AlertSeverity          `json:"severity"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// PerformanceComparison is the difference between two snapshots.
type PerformanceComparison struct {
	ResolutionRateChange float64 `json:"resolutionRateChange"`
	AvgTimeChange        float64 `json:"avgTimeChange"`
	SentimentChange      float64 `json:"sentimentChange"`
	TotalGrievanceChange int     `json:"totalGrievanceChange"`
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	RulesApplied             uint64    `json:"rules_applied"`
	Escalations              uint64    `json:"escalations"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
