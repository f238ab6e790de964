package service

import (
	"math"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

const (
	defaultCategoryAvgDays = 5.0
	workloadSaturation     = 100.0
	maxWorkloadFactor      = 2.0
	historicalSampleTarget = 50.0
	// DefaultPredictionLimit caps how many active grievances the dashboard predicts.
	DefaultPredictionLimit = 10
)

var priorityFactors = map[models.Priority]float64{
	models.PriorityHigh:   0.7,
	models.PriorityMedium: 0.9,
	models.PriorityLow:    1.1,
}

// confidenceTiers is ordered by descending sample threshold; the first tier whose
// threshold is strictly exceeded wins.
var confidenceTiers = []struct {
	above int
	score float64
}{
	{above: 10, score: 0.85},
	{above: 5, score: 0.65},
}

const baseConfidence = 0.4

// PredictResolutionTime estimates days to resolution for one grievance from the category
// history, its priority and the system-wide open workload.
func PredictResolutionTime(grievance models.Grievance, all []models.Grievance) models.PredictedResolutionTime {
	var metric models.ResolutionTimeMetric
	for _, m := range ResolutionTimeMetrics(all) {
		if m.Category == grievance.Category {
			metric = m
			break
		}
	}

	categoryAvg := metric.AvgDays
	if metric.TotalResolved == 0 {
		categoryAvg = defaultCategoryAvgDays
	}

	priorityFactor, ok := priorityFactors[grievance.Priority]
	if !ok {
		priorityFactor = priorityFactors[models.PriorityLow]
	}

	open := 0
	for _, g := range all {
		if g.Status.IsOpen() {
			open++
		}
	}
	workloadFactor := math.Min(1+float64(open)/workloadSaturation, maxWorkloadFactor)
	historical := math.Min(float64(metric.TotalResolved)/historicalSampleTarget, 1)

	return models.PredictedResolutionTime{
		GrievanceID:            grievance.ID,
		Category:               grievance.Category,
		Priority:               grievance.Priority,
		EstimatedDaysToResolve: roundTo(categoryAvg*priorityFactor*workloadFactor, 1),
		ConfidenceScore:        confidenceFor(metric.TotalResolved),
		Factors: models.PredictionFactors{
			CategoryAvg:    categoryAvg,
			PriorityFactor: priorityFactor,
			WorkloadFactor: workloadFactor,
			HistoricalData: historical,
		},
	}
}

// PredictActive predicts the first limit open grievances in collection order.
func PredictActive(all []models.Grievance, limit int) []models.PredictedResolutionTime {
	if limit <= 0 {
		limit = DefaultPredictionLimit
	}
	predictions := make([]models.PredictedResolutionTime, 0, limit)
	for _, g := range all {
		if len(predictions) == limit {
			break
		}
		if g.Status.IsOpen() {
			predictions = append(predictions, PredictResolutionTime(g, all))
		}
	}
	return predictions
}

func confidenceFor(samples int) float64 {
	for _, tier := range confidenceTiers {
		if samples > tier.above {
			return tier.score
		}
	}
	return baseConfidence
}
