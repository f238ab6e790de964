package models

import "time"

// NotificationType classifies notifications for the delivery layer.
type NotificationType string

const (
	NotificationStatusChange  NotificationType = "status_change"
	NotificationReply         NotificationType = "reply"
	NotificationNewSubmission NotificationType = "new_submission"
)

// AppNotification is a message addressed to one user.
type AppNotification struct {
	ID          string           `db:"id" json:"id"`
	UserID      string           `db:"user_id" json:"userId"`
	Message     string           `db:"message" json:"message"`
	Timestamp   time.Time        `db:"created_at" json:"timestamp"`
	Read        bool             `db:"read" json:"read"`
	Type        NotificationType `db:"type" json:"type"`
	GrievanceID *string          `db:"grievance_id" json:"grievanceId,omitempty"`
}
