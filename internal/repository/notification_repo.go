package repository

import (
	"context"

	"github.com/notifyhub/notification-dispatch/internal/domain"
)

// NotificationRepository is the durable record store for notifications.
// The pgx implementation is in pg_notification_repo.go; an in-memory one
// (memory_notification_repo.go) backs tests and local runs.
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, id string) (*domain.Notification, error)
	// UpdateStatus applies u only while the record is still pending.
	// It returns ErrInvalidTransition when the record already reached a
	// terminal status and ErrNotFound when it does not exist.
	UpdateStatus(ctx context.Context, id string, u domain.StatusUpdate) error
	CountByStatus(ctx context.Context, status domain.Status) (int, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Notification, error)
}
