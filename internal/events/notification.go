package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// NotificationSink stores one notification row per target user.
// The payload is kept as the protojson encoding of a google.protobuf.Struct.
type NotificationSink struct {
	store storage.Store
}

func NewNotificationSink(store storage.Store) *NotificationSink {
	return &NotificationSink{store: store}
}

func (s *NotificationSink) Emit(ctx context.Context, event Event) error {
	if len(event.Targets) == 0 {
		return nil
	}

	payload, err := EncodePayload(event.Payload)
	if err != nil {
		return err
	}

	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	notifications := make([]models.Notification, 0, len(event.Targets))
	for _, userID := range event.Targets {
		notifications = append(notifications, models.Notification{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      string(event.Type),
			Payload:   payload,
			CreatedAt: at.UTC(),
		})
	}

	err = s.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.CreateNotifications(ctx, notifications)
	})
	if err != nil {
		return fmt.Errorf("failed to store %s notifications: %w", event.Type, err)
	}
	return nil
}

// EncodePayload renders a payload as protojson.
func EncodePayload(payload map[string]any) ([]byte, error) {
	st, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build payload struct: %w", err)
	}
	b, err := protojson.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return b, nil
}

// DecodePayload is the inverse of EncodePayload.
func DecodePayload(b []byte) (map[string]any, error) {
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return st.AsMap(), nil
}
