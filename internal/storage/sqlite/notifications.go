package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
)

// CreateNotifications inserts one row per notification.
func (c *conn) CreateNotifications(ctx context.Context, notifications []models.Notification) error {
	for _, n := range notifications {
		_, err := c.q.ExecContext(ctx,
			"INSERT INTO notifications (id, user_id, type, payload, created_at, read) VALUES (?, ?, ?, ?, ?, ?)",
			n.ID, n.UserID, n.Type, n.Payload, toMillis(n.CreatedAt), n.Read,
		)
		if err != nil {
			return wrapConstraint(err, "insert notification")
		}
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, type, payload, created_at, read FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Payload, &createdAt, &n.Read); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.CreatedAt = fromMillis(createdAt)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return out, nil
}
