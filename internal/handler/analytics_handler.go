package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/dto"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/middleware"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/export"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/response"
)

type analyticsService interface {
	Bundle(ctx context.Context) (*dto.AnalyticsBundle, bool, error)
	PredictGrievance(ctx context.Context, id string) (*models.PredictedResolutionTime, error)
	Compare(ctx context.Context, windowDays int) (*dto.ComparisonResponse, error)
	Report(ctx context.Context, format string) ([]byte, export.Renderer, error)
	SystemMetrics() models.AnalyticsSystemMetrics
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Dashboard godoc
// @Summary Analytics dashboard
// @Description Snapshot, trends, insights, predictions and escalation metrics in one payload
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	h.section(c, func(b *dto.AnalyticsBundle) interface{} { return b })
}

// Snapshot godoc
// @Summary Analytics snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/snapshot [get]
func (h *AnalyticsHandler) Snapshot(c *gin.Context) {
	h.section(c, func(b *dto.AnalyticsBundle) interface{} { return b.Snapshot })
}

// ResolutionTimes godoc
// @Summary Resolution time metrics per category
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/resolution-times [get]
func (h *AnalyticsHandler) ResolutionTimes(c *gin.Context) {
	h.section(c, func(b *dto.AnalyticsBundle) interface{} { return b.ResolutionTimes })
}

// SentimentTrends godoc
// @Summary Sentiment trends over the last seven days
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/sentiment-trends [get]
func (h *AnalyticsHandler) SentimentTrends(c *gin.Context) {
	h.section(c, func(b *dto.AnalyticsBundle) interface{} { return b.SentimentTrends })
}

// Insights godoc
// @Summary Insight alerts
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/insights [get]
func (h *AnalyticsHandler) Insights(c *gin.Context) {
	h.section(c, func(b *dto.AnalyticsBundle) interface{} { return b.Insights })
}

// Predictions godoc
// @Summary Resolution predictions for open grievances
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/predictions [get]
func (h *AnalyticsHandler) Predictions(c *gin.Context) {
	h.section(c, func(b *dto.AnalyticsBundle) interface{} { return b.Predictions })
}

// Escalations godoc
// @Summary Escalation metrics
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/escalations [get]
func (h *AnalyticsHandler) Escalations(c *gin.Context) {
	h.section(c, func(b *dto.AnalyticsBundle) interface{} { return b.Escalations })
}

// Prediction godoc
// @Summary Predict resolution time for one grievance
// @Tags Analytics
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/prediction [get]
func (h *AnalyticsHandler) Prediction(c *gin.Context) {
	prediction, err := h.analytics.PredictGrievance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, prediction)
}

// Compare godoc
// @Summary Compare performance against an earlier window
// @Tags Analytics
// @Produce json
// @Param window_days query int false "Days back for the earlier snapshot" default(30)
// @Success 200 {object} response.Envelope
// @Router /analytics/compare [get]
func (h *AnalyticsHandler) Compare(c *gin.Context) {
	result, err := h.analytics.Compare(c.Request.Context(), queryInt(c, "window_days", 30))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Report godoc
// @Summary Download analytics report
// @Tags Analytics
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /analytics/report [get]
func (h *AnalyticsHandler) Report(c *gin.Context) {
	payload, renderer, err := h.analytics.Report(c.Request.Context(), c.DefaultQuery("format", export.FormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("grievance-analytics-%s.%s", time.Now().UTC().Format("20060102"), renderer.Extension())
	response.Attachment(c, filename, renderer.ContentType(), payload)
}

// System godoc
// @Summary System metrics
// @Description Cache, HTTP, database and workflow counters
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	response.OK(c, h.analytics.SystemMetrics())
}

func (h *AnalyticsHandler) section(c *gin.Context, pick func(*dto.AnalyticsBundle) interface{}) {
	bundle, cacheHit, err := h.analytics.Bundle(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, "generated_at", bundle.GeneratedAt)
	response.OK(c, pick(bundle), middleware.ResponseMeta(c))
}
