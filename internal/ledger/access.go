package ledger

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// loadGroup fetches a group, mapping a missing row to ErrNotFound.
func loadGroup(ctx context.Context, r storage.Reader, op, groupID string) (*models.Group, error) {
	group, err := r.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound(op, "group %s not found", groupID)
	}
	if err != nil {
		return nil, err
	}
	return group, nil
}

// loadActiveGroup fetches a group that still accepts mutations.
func loadActiveGroup(ctx context.Context, r storage.Reader, op, groupID string) (*models.Group, error) {
	group, err := loadGroup(ctx, r, op, groupID)
	if err != nil {
		return nil, err
	}
	if !group.Lifecycle.IsActive() {
		return nil, invalidState(op, "group %s is deleted and read-only", groupID)
	}
	return group, nil
}

// membership returns the user's membership or nil when they are not a member.
func membership(ctx context.Context, r storage.Reader, groupID, userID string) (*models.GroupMember, error) {
	m, err := r.GetMember(ctx, groupID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// isGroupAdmin reports whether the user holds the admin role or created the group.
func isGroupAdmin(ctx context.Context, r storage.Reader, group *models.Group, userID string) (bool, error) {
	if group.CreatedBy == userID {
		return true, nil
	}
	m, err := membership(ctx, r, group.ID, userID)
	if err != nil {
		return false, err
	}
	return m != nil && m.IsAdmin(), nil
}

func requireUser(ctx context.Context, r storage.Reader, op, userID string) error {
	if userID == "" {
		return invalidArgument(op, "user id is required")
	}
	_, err := r.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(op, "user %s not found", userID)
	}
	return err
}

func memberIDs(members []models.GroupMember) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids
}
