package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/ai"
)

// ClassifierService labels grievances and drafts replies. A remote assistant is tried
// first when configured; failures fall back to the keyword heuristic and are never surfaced.
type ClassifierService struct {
	remote   ai.Assistant
	fallback *ai.KeywordClassifier
	timeout  time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewClassifierService builds the service. remote may be nil.
func NewClassifierService(remote ai.Assistant, timeout time.Duration, metrics *MetricsService, logger *zap.Logger) *ClassifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ClassifierService{
		remote:   remote,
		fallback: ai.NewKeywordClassifier(),
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// Provider names the backend consulted first.
func (s *ClassifierService) Provider() string {
	if s.remote != nil {
		return s.remote.Name()
	}
	return s.fallback.Name()
}

// Classify returns the normalised category, priority and insights for a submission.
func (s *ClassifierService) Classify(ctx context.Context, subject, description string) (models.GrievanceCategory, models.Priority, models.AIInsights) {
	if s.remote != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		out, err := s.remote.Classify(callCtx, subject, description)
		cancel()
		if err == nil {
			s.metrics.RecordClassifier(s.remote.Name(), "ok")
			return normaliseClassification(out)
		}
		s.metrics.RecordClassifier(s.remote.Name(), "fallback")
		s.logger.Warn("remote classifier failed, using keyword fallback",
			zap.String("provider", s.remote.Name()), zap.Error(err))
	}

	out, _ := s.fallback.Classify(ctx, subject, description)
	s.metrics.RecordClassifier(s.fallback.Name(), "ok")
	return normaliseClassification(out)
}

// DraftReply produces a formal reply draft for staff. It always returns text.
func (s *ClassifierService) DraftReply(ctx context.Context, g models.Grievance) string {
	req := ai.DraftRequest{
		UserName:    g.UserName,
		UserRole:    g.UserRole,
		Subject:     g.Subject,
		Description: g.Description,
		Status:      string(g.Status),
		Category:    string(g.Category),
	}
	if s.remote != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		text, err := s.remote.DraftReply(callCtx, req)
		cancel()
		if err == nil && strings.TrimSpace(text) != "" {
			s.metrics.RecordClassifier(s.remote.Name(), "ok")
			return text
		}
		s.metrics.RecordClassifier(s.remote.Name(), "fallback")
		s.logger.Warn("remote draft failed, using template", zap.String("provider", s.remote.Name()), zap.Error(err))
	}
	text, err := s.fallback.DraftReply(ctx, req)
	if err != nil || strings.TrimSpace(text) == "" {
		return ai.FallbackReply
	}
	return text
}

func normaliseClassification(out ai.Classification) (models.GrievanceCategory, models.Priority, models.AIInsights) {
	insights := models.AIInsights{
		Sentiment:       models.ParseSentiment(strings.TrimSpace(out.Sentiment)),
		Summary:         strings.TrimSpace(out.Summary),
		SuggestedAction: strings.TrimSpace(out.SuggestedAction),
	}
	return models.ParseCategory(strings.TrimSpace(out.Category)), models.ParsePriority(strings.TrimSpace(out.Priority)), insights
}
