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

const groupColumns = "g.id, g.name, g.created_by, g.state, g.deleted_at, g.created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	group := &models.Group{}
	var (
		state     string
		deletedAt sql.NullInt64
		createdAt int64
	)
	if err := row.Scan(&group.ID, &group.Name, &group.CreatedBy, &state, &deletedAt, &createdAt); err != nil {
		return nil, err
	}

	var at *time.Time
	if deletedAt.Valid {
		t := fromMillis(deletedAt.Int64)
		at = &t
	}
	lifecycle, err := models.ParseLifecycle(state, at)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", group.ID, err)
	}
	group.Lifecycle = lifecycle
	group.CreatedAt = fromMillis(createdAt)
	return group, nil
}

func collectGroups(rows *sql.Rows) ([]models.Group, error) {
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// CreateGroup persists a new active group.
func (c *conn) CreateGroup(ctx context.Context, group *models.Group) error {
	_, err := c.q.ExecContext(ctx,
		"INSERT INTO groups (id, name, created_by, state, created_at) VALUES (?, ?, ?, ?, ?)",
		group.ID, group.Name, group.CreatedBy, string(models.GroupActive), toMillis(group.CreatedAt),
	)
	if err != nil {
		return wrapConstraint(err, "insert group")
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (c *conn) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	row := c.q.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups g WHERE g.id = ?",
		groupID,
	)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// SetGroupCreator rewrites the group's creator.
func (c *conn) SetGroupCreator(ctx context.Context, groupID, userID string) error {
	res, err := c.q.ExecContext(ctx, "UPDATE groups SET created_by = ? WHERE id = ?", userID, groupID)
	if err != nil {
		return fmt.Errorf("failed to update group creator: %w", err)
	}
	return requireOneRow(res, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound))
}

// SoftDeleteGroup marks an active group deleted at the given time.
func (c *conn) SoftDeleteGroup(ctx context.Context, groupID string, at time.Time) error {
	res, err := c.q.ExecContext(ctx,
		"UPDATE groups SET state = ?, deleted_at = ? WHERE id = ? AND state = ?",
		string(models.GroupSoftDeleted), toMillis(at), groupID, string(models.GroupActive),
	)
	if err != nil {
		return fmt.Errorf("failed to soft-delete group: %w", err)
	}
	return requireOneRow(res, fmt.Errorf("group %s is not active: %w", groupID, storage.ErrConcurrentModification))
}

// DeleteGroup removes the group row. Dependents must already be gone.
func (c *conn) DeleteGroup(ctx context.Context, groupID string) error {
	res, err := c.q.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return requireOneRow(res, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound))
}

// ListDeletedGroupsForUser lists soft-deleted groups the user still belongs to.
func (c *conn) ListDeletedGroupsForUser(ctx context.Context, userID string, since time.Time) ([]models.Group, error) {
	rows, err := c.q.QueryContext(ctx,
		`SELECT `+groupColumns+`
		 FROM groups g JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ? AND g.state = ? AND g.deleted_at > ?
		 ORDER BY g.deleted_at DESC, g.id`,
		userID, string(models.GroupSoftDeleted), toMillis(since),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list deleted groups: %w", err)
	}
	return collectGroups(rows)
}

// ListGroupsDeletedBefore returns soft-deleted groups due for purge, oldest first.
func (c *conn) ListGroupsDeletedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := c.q.QueryContext(ctx,
		"SELECT id FROM groups WHERE state = ? AND deleted_at <= ? ORDER BY deleted_at, id",
		string(models.GroupSoftDeleted), toMillis(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group ids: %w", err)
	}
	return ids, nil
}

// AddMember inserts a membership row.
func (c *conn) AddMember(ctx context.Context, member *models.GroupMember) error {
	_, err := c.q.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)",
		member.GroupID, member.UserID, string(member.Role), toMillis(member.JoinedAt),
	)
	if err != nil {
		return wrapConstraint(err, "insert group member")
	}
	return nil
}

// GetMember retrieves one membership.
func (c *conn) GetMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	m := &models.GroupMember{}
	var role string
	var joinedAt int64
	err := c.q.QueryRowContext(ctx,
		"SELECT group_id, user_id, role, joined_at FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	).Scan(&m.GroupID, &m.UserID, &role, &joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s of group %s: %w", userID, groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group member: %w", err)
	}
	m.Role = models.Role(role)
	m.JoinedAt = fromMillis(joinedAt)
	return m, nil
}

// ListMembers returns the members of a group ordered by join time.
func (c *conn) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	rows, err := c.q.QueryContext(ctx,
		"SELECT group_id, user_id, role, joined_at FROM group_members WHERE group_id = ? ORDER BY joined_at, user_id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		var role string
		var joinedAt int64
		if err := rows.Scan(&m.GroupID, &m.UserID, &role, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		m.Role = models.Role(role)
		m.JoinedAt = fromMillis(joinedAt)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}

// CountGroupsForUser counts the user's memberships in active groups.
func (c *conn) CountGroupsForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := c.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM group_members m JOIN groups g ON g.id = m.group_id
		 WHERE m.user_id = ? AND g.state = ?`,
		userID, string(models.GroupActive),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return n, nil
}

// UpdateMemberRole changes a member's role. Promoting a second admin is a conflict.
func (c *conn) UpdateMemberRole(ctx context.Context, groupID, userID string, role models.Role) error {
	res, err := c.q.ExecContext(ctx,
		"UPDATE group_members SET role = ? WHERE group_id = ? AND user_id = ?",
		string(role), groupID, userID,
	)
	if err != nil {
		return wrapConstraint(err, "update member role")
	}
	return requireOneRow(res, fmt.Errorf("member %s of group %s: %w", userID, groupID, storage.ErrNotFound))
}

// RemoveMember deletes one membership.
func (c *conn) RemoveMember(ctx context.Context, groupID, userID string) error {
	res, err := c.q.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove group member: %w", err)
	}
	return requireOneRow(res, fmt.Errorf("member %s of group %s: %w", userID, groupID, storage.ErrNotFound))
}
