package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/jobs"
)

// Job types handled by the background queue.
const (
	JobDeliverNotifications = "notifications.deliver"
	JobApplyWorkflow        = "workflow.apply"
)

const defaultNotificationLimit = 50

type notificationRepository interface {
	CreateBatch(ctx context.Context, items []models.AppNotification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.AppNotification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// Enqueuer accepts background jobs.
type Enqueuer interface {
	Enqueue(job jobs.Job) error
}

// NotificationService persists notifications, optionally through the background queue.
type NotificationService struct {
	repo    notificationRepository
	queue   Enqueuer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService builds the service. A nil queue delivers synchronously.
func NewNotificationService(repo notificationRepository, queue Enqueuer, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, queue: queue, metrics: metrics, logger: logger}
}

// UseQueue attaches the delivery queue once it has been built.
func (s *NotificationService) UseQueue(queue Enqueuer) {
	s.queue = queue
}

// Dispatch hands notifications to delivery. Queue failures fall back to a direct write.
func (s *NotificationService) Dispatch(ctx context.Context, items []models.AppNotification) error {
	if len(items) == 0 {
		return nil
	}
	s.metrics.RecordNotifications(len(items))
	if s.queue != nil {
		batch := append([]models.AppNotification(nil), items...)
		err := s.queue.Enqueue(jobs.Job{Type: JobDeliverNotifications, Payload: batch})
		if err == nil {
			return nil
		}
		s.logger.Warn("notification enqueue failed, writing inline", zap.Int("count", len(items)), zap.Error(err))
	}
	return s.deliver(ctx, items)
}

// HandleDelivery is the queue handler for JobDeliverNotifications.
func (s *NotificationService) HandleDelivery(ctx context.Context, job jobs.Job) error {
	items, ok := job.Payload.([]models.AppNotification)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	return s.deliver(ctx, items)
}

func (s *NotificationService) deliver(ctx context.Context, items []models.AppNotification) error {
	if err := s.repo.CreateBatch(ctx, items); err != nil {
		return appErrors.Internal(err, "failed to store notifications")
	}
	s.logger.Debug("notifications delivered", zap.Int("count", len(items)))
	return nil
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, principal models.Principal, unreadOnly bool, limit int) ([]models.AppNotification, error) {
	if principal.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}
	items, err := s.repo.ListByUser(ctx, principal.UserID, unreadOnly, limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list notifications")
	}
	return items, nil
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, principal models.Principal, id string) error {
	if principal.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.MarkRead(ctx, principal.UserID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Internal(err, "failed to update notification")
	}
	return nil
}
