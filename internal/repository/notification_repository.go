package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-console/internal/domain"
)

// NotificationRepository manages notification persistence. Exists backs the
// overdue dedup guard: one task_overdue notification per (user, task).
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	Exists(ctx context.Context, userEmail string, notificationType domain.NotificationType, entityID string) (bool, error)
	ListForUser(ctx context.Context, userEmail string, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds the repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_email, type, entity_id, message)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		notification.UserEmail,
		notification.Type,
		notification.EntityID,
		notification.Message,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *notificationRepository) Exists(ctx context.Context, userEmail string, notificationType domain.NotificationType, entityID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM notifications WHERE user_email=$1 AND type=$2 AND entity_id=$3)`
	var exists bool
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, userEmail, notificationType, entityID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userEmail string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, user_email, type, entity_id, message, read_at, created_at
        FROM notifications WHERE user_email=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, userEmail, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserEmail, &n.Type, &n.EntityID, &n.Message, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx,
		`UPDATE notifications SET read_at=COALESCE(read_at, NOW()) WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
