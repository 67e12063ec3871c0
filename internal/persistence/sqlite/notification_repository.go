package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

// NotificationRepository implements persistence.NotificationRepository using SQLite
type NotificationRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewNotificationRepository creates a new SQLite notification repository
func NewNotificationRepository(pool *ConnectionPool) *NotificationRepository {
	return &NotificationRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateNotification inserts a notification
func (r *NotificationRepository) CreateNotification(ctx context.Context, notification persistence.Notification) error {
	if notification.ID == "" || notification.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	payload, err := encodeJSONObject(notification.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = r.helper.Exec(ctx, `
		INSERT INTO notifications (id, user_id, kind, payload, read_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		notification.ID,
		notification.UserID,
		notification.Kind,
		payload,
		formatNullTime(notification.ReadAt),
		formatTime(notification.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// ListNotifications returns up to limit notifications of a user, newest first
func (r *NotificationRepository) ListNotifications(ctx context.Context, userID string, limit int) ([]persistence.Notification, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.helper.Query(ctx, `
		SELECT id, user_id, kind, payload, read_at, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	notifications := []persistence.Notification{}
	for rows.Next() {
		var (
			notification       persistence.Notification
			payload, createdAt string
			readAt             sql.NullString
		)
		if err := rows.Scan(&notification.ID, &notification.UserID, &notification.Kind, &payload, &readAt, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if notification.Payload, err = decodeJSONObject(payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		if notification.ReadAt, err = parseNullTime("read_at", readAt); err != nil {
			return nil, err
		}
		if notification.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	return notifications, r.mapper.MapError(rows.Err())
}

// MarkNotificationRead stamps a notification owned by userID as read
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, id, userID string, readAt time.Time) error {
	return r.helper.ExecAffectingOne(ctx, r.mapper, `
		UPDATE notifications SET read_at = COALESCE(read_at, ?) WHERE id = ? AND user_id = ?
	`, formatTime(readAt), id, userID)
}
