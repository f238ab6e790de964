package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

func TestPredictResolutionTimeFromHistory(t *testing.T) {
	target := newGrievance("target", time.Hour, withCategory(models.CategoryAcademic), withPriority(models.PriorityHigh))
	all := []models.Grievance{
		newGrievance("r1", 20*day, withCategory(models.CategoryAcademic), resolvedAfter(2)),
		newGrievance("r2", 20*day, withCategory(models.CategoryAcademic), resolvedAfter(4)),
		newGrievance("r3", 20*day, withCategory(models.CategoryAcademic), resolvedAfter(6)),
		target,
	}

	prediction := PredictResolutionTime(target, all)

	assert.Equal(t, "target", prediction.GrievanceID)
	assert.Equal(t, models.CategoryAcademic, prediction.Category)
	assert.Equal(t, models.PriorityHigh, prediction.Priority)
	assert.InDelta(t, 4.0, prediction.Factors.CategoryAvg, 1e-9)
	assert.InDelta(t, 0.7, prediction.Factors.PriorityFactor, 1e-9)
	assert.InDelta(t, 1.01, prediction.Factors.WorkloadFactor, 1e-9)
	assert.InDelta(t, 0.06, prediction.Factors.HistoricalData, 1e-9)
	assert.InDelta(t, 2.8, prediction.EstimatedDaysToResolve, 1e-9)
	assert.Equal(t, 0.4, prediction.ConfidenceScore)
}

func TestPredictResolutionTimeDefaultsWithoutHistory(t *testing.T) {
	target := newGrievance("target", time.Hour, withCategory(models.CategoryHostel), withPriority(models.PriorityLow))

	prediction := PredictResolutionTime(target, []models.Grievance{target})

	assert.Equal(t, 5.0, prediction.Factors.CategoryAvg)
	assert.InDelta(t, 1.1, prediction.Factors.PriorityFactor, 1e-9)
	assert.Zero(t, prediction.Factors.HistoricalData)
	assert.InDelta(t, 5.6, prediction.EstimatedDaysToResolve, 1e-9)
}

func TestPredictResolutionTimeUnknownPriorityUsesLowFactor(t *testing.T) {
	target := newGrievance("target", time.Hour, withPriority("Critical"))
	prediction := PredictResolutionTime(target, nil)
	assert.InDelta(t, 1.1, prediction.Factors.PriorityFactor, 1e-9)
	assert.Equal(t, 1.0, prediction.Factors.WorkloadFactor)
}

func TestWorkloadFactorIsCapped(t *testing.T) {
	all := make([]models.Grievance, 0, 150)
	for i := 0; i < 150; i++ {
		all = append(all, newGrievance(fmt.Sprintf("g%d", i), time.Hour))
	}
	prediction := PredictResolutionTime(all[0], all)
	assert.Equal(t, 2.0, prediction.Factors.WorkloadFactor)
}

func TestConfidenceTiers(t *testing.T) {
	assert.Equal(t, 0.4, confidenceFor(0))
	assert.Equal(t, 0.4, confidenceFor(5))
	assert.Equal(t, 0.65, confidenceFor(6))
	assert.Equal(t, 0.65, confidenceFor(10))
	assert.Equal(t, 0.85, confidenceFor(11))
}

func TestHistoricalDataSaturates(t *testing.T) {
	all := make([]models.Grievance, 0, 60)
	for i := 0; i < 60; i++ {
		all = append(all, newGrievance(fmt.Sprintf("r%d", i), 10*day, resolvedAfter(1)))
	}
	prediction := PredictResolutionTime(newGrievance("target", time.Hour), all)
	assert.Equal(t, 1.0, prediction.Factors.HistoricalData)
	assert.Equal(t, 0.85, prediction.ConfidenceScore)
}

func TestPredictActive(t *testing.T) {
	all := []models.Grievance{
		newGrievance("a", time.Hour),
		newGrievance("done", time.Hour, resolvedAfter(0.5)),
		newGrievance("b", time.Hour, withStatus(models.StatusInProgress)),
		newGrievance("c", time.Hour),
	}

	predictions := PredictActive(all, 2)
	require.Len(t, predictions, 2)
	assert.Equal(t, "a", predictions[0].GrievanceID)
	assert.Equal(t, "b", predictions[1].GrievanceID)

	assert.Len(t, PredictActive(all, 0), 3)
}
