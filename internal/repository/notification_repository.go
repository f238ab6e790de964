package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

const notificationColumns = "id, user_id, message, type, grievance_id, read, created_at"

// NotificationRepository persists in-app notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateBatch inserts notifications in a single transaction.
func (r *NotificationRepository) CreateBatch(ctx context.Context, items []models.AppNotification) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notification tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO notifications (id, user_id, message, type, grievance_id, read, created_at) VALUES (:id, :user_id, :message, :type, :grievance_id, :read, :created_at)`
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = ulid.Make().String()
		}
		if items[i].Timestamp.IsZero() {
			items[i].Timestamp = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, query, items[i]); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notifications: %w", err)
	}
	return nil
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.AppNotification, error) {
	builder := psql.Select(notificationColumns).
		From("notifications").
		Where("user_id = ?", userID).
		OrderBy("created_at DESC", "id DESC")
	if unreadOnly {
		builder = builder.Where("read = FALSE")
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build notification query: %w", err)
	}
	items := make([]models.AppNotification, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// MarkRead flags one of the user's notifications as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return expectAffected(res)
}
