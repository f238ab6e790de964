package dto

import (
	"time"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

// AnalyticsBundle is everything the dashboard needs, computed from one load of the data.
type AnalyticsBundle struct {
	Snapshot        models.AnalyticsSnapshot         `json:"snapshot"`
	ResolutionTimes []models.ResolutionTimeMetric    `json:"resolutionTimes"`
	SentimentTrends []models.SentimentTrend          `json:"sentimentTrends"`
	Insights        []models.InsightAlert            `json:"insights"`
	Predictions     []models.PredictedResolutionTime `json:"predictions"`
	Escalations     models.EscalationMetrics         `json:"escalations"`
	GeneratedAt     time.Time                        `json:"generatedAt"`
}

// ComparisonResponse pairs two snapshots with their difference.
type ComparisonResponse struct {
	WindowDays int                          `json:"windowDays"`
	Before     models.AnalyticsSnapshot     `json:"before"`
	After      models.AnalyticsSnapshot     `json:"after"`
	Change     models.PerformanceComparison `json:"change"`
}
