package service

import (
	"fmt"
	"strings"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

const (
	rejectionRateThreshold     = 20
	lowResolutionRateThreshold = 30
	lowResolutionMinVolume     = 10
	negativeSentimentThreshold = 40
	categorySpikeThreshold     = 50
	slowResolutionDays         = 14
	backlogThreshold           = 30
)

// GenerateInsights evaluates every alert rule against the snapshot in declaration order.
// Rules fire independently; rate thresholds are strict.
func (e *AnalyticsEngine) GenerateInsights(snapshot models.AnalyticsSnapshot) []models.InsightAlert {
	alerts := make([]models.InsightAlert, 0)
	total := snapshot.TotalGrievances

	if total > 0 && exceedsPercent(snapshot.StatusDistribution.Rejected, total, rejectionRateThreshold) {
		alerts = append(alerts, e.alert(models.AlertAnomaly, models.SeverityHigh,
			"High Rejection Rate Detected",
			fmt.Sprintf("%.1f%% of grievances are being rejected. Review rejection criteria.", percentOf(snapshot.StatusDistribution.Rejected, total)),
			nil))
	}

	if total > lowResolutionMinVolume && snapshot.ResolvedCount*100 < lowResolutionRateThreshold*total {
		alerts = append(alerts, e.alert(models.AlertTrend, models.SeverityHigh,
			"Low Resolution Rate",
			fmt.Sprintf("Only %.1f%% of grievances are resolved. Increase team capacity or speed up process.", snapshot.ResolutionRate),
			nil))
	}

	if total > 0 && exceedsPercent(snapshot.SentimentDistribution.Negative, total, negativeSentimentThreshold) {
		alerts = append(alerts, e.alert(models.AlertAnomaly, models.SeverityHigh,
			"High Negative Sentiment",
			fmt.Sprintf("%.1f%% of grievances show negative sentiment. Check for systemic issues.", percentOf(snapshot.SentimentDistribution.Negative, total)),
			nil))
	}

	for _, metric := range snapshot.CategoryMetrics {
		if metric.Trend == models.TrendUp && metric.PercentChange > categorySpikeThreshold {
			alerts = append(alerts, e.alert(models.AlertTrend, models.SeverityMedium,
				fmt.Sprintf("%s Grievances Spiking", metric.Category),
				fmt.Sprintf("%s cases increased by %g%% in last 30 days. Investigate root cause.", metric.Category, metric.PercentChange),
				map[string]interface{}{"category": metric.Category, "percentChange": metric.PercentChange}))
		}
	}

	slow := make([]string, 0)
	for _, metric := range snapshot.CategoryMetrics {
		if metric.AvgResolutionTime > slowResolutionDays {
			slow = append(slow, string(metric.Category))
		}
	}
	if len(slow) > 0 {
		alerts = append(alerts, e.alert(models.AlertRecommendation, models.SeverityMedium,
			"Slow Resolution Categories Identified",
			fmt.Sprintf("%s cases take >%d days on average. Consider process optimization.", strings.Join(slow, ", "), slowResolutionDays),
			map[string]interface{}{"categories": slow}))
	}

	if total > 0 && exceedsPercent(snapshot.StatusDistribution.Pending, total, backlogThreshold) {
		alerts = append(alerts, e.alert(models.AlertTrend, models.SeverityMedium,
			"Pending Cases Backlog",
			fmt.Sprintf("%.1f%% of cases are still pending. Process may be understaffed.", percentOf(snapshot.StatusDistribution.Pending, total)),
			nil))
	}

	return alerts
}

func (e *AnalyticsEngine) alert(kind models.AlertType, severity models.AlertSeverity, title, description string, metadata map[string]interface{}) models.InsightAlert {
	return models.InsightAlert{
		ID:          e.newID(),
		Type:        kind,
		Severity:    severity,
		Title:       title,
		Description: description,
		Metadata:    metadata,
		Timestamp:   e.now(),
	}
}

// exceedsPercent compares count/total against pct in integers so boundary ratios never fire.
func exceedsPercent(count, total, pct int) bool {
	return count*100 > pct*total
}

func percentOf(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
