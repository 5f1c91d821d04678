package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// CreateUser inserts a new user into the database.
func (c *conn) CreateUser(ctx context.Context, user *models.User) error {
	_, err := c.q.ExecContext(ctx,
		"INSERT INTO users (id, display_name, created_at) VALUES (?, ?, ?)",
		user.ID, user.DisplayName, toMillis(user.CreatedAt),
	)
	if err != nil {
		return wrapConstraint(err, "create user")
	}
	return nil
}

// GetUser retrieves a user by their ID.
func (c *conn) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{}
	var createdAt int64
	err := c.q.QueryRowContext(ctx,
		"SELECT id, display_name, created_at FROM users WHERE id = ?",
		userID,
	).Scan(&user.ID, &user.DisplayName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

// GetSetting reads one system setting.
func (c *conn) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := c.q.QueryRowContext(ctx, "SELECT value FROM system_settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// PutSetting creates or overwrites a system setting.
func (c *conn) PutSetting(ctx context.Context, key, value string) error {
	_, err := c.q.ExecContext(ctx,
		`INSERT INTO system_settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to put setting %s: %w", key, err)
	}
	return nil
}
