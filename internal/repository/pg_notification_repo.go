package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/notification-dispatch/internal/domain"
)

const selectColumns = `
	SELECT id, user_id, type, recipient, subject, content, status,
	       error_message, created_at, sent_at
	FROM notifications`

// pgxQuerier is the part of *pgxpool.Pool the repository uses.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgNotificationRepository struct {
	pool pgxQuerier
}

// NewPgNotificationRepository returns a NotificationRepository backed by PostgreSQL.
func NewPgNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepository{pool: pool}
}

// isRecordID reports whether id can name a row. The id column is a UUID,
// so anything else cannot exist and must not reach the query as a cast error.
func isRecordID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *pgNotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
			(id, user_id, type, recipient, subject, content, status, error_message, created_at, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		n.ID, n.UserID, n.Type, n.Recipient, n.Subject, n.Content, n.Status,
		n.ErrorMessage, n.CreatedAt, n.SentAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *pgNotificationRepository) Get(ctx context.Context, id string) (*domain.Notification, error) {
	if !isRecordID(id) {
		return nil, domain.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id)

	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// UpdateStatus is a single conditional UPDATE so the pending guard and the
// write commit atomically for this record.
func (r *pgNotificationRepository) UpdateStatus(ctx context.Context, id string, u domain.StatusUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if !isRecordID(id) {
		return domain.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $1, error_message = $2, sent_at = $3
		WHERE id = $4 AND status = 'pending'`,
		u.Status, u.ErrorMessage, u.SentAt, id)
	if err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Zero rows: either the record is gone or it already left pending.
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check notification: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInvalidTransition
}

func (r *pgNotificationRepository) CountByStatus(ctx context.Context, status domain.Status) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE status = $1`, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

func (r *pgNotificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(ctx, selectColumns+`
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// ---- helpers ----

// scanNotification reads a single notification row from any pgx row type.
func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.Type, &n.Recipient, &n.Subject, &n.Content,
		&n.Status, &n.ErrorMessage, &n.CreatedAt, &n.SentAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func scanNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	result := []*domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
