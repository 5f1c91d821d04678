// Package events delivers ledger state changes to users. Delivery is best
// effort: the ledger emits after its transaction commits and only logs failures.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Type names a ledger event.
type Type string

const (
	MemberLeftExpense Type = "member_left_expense"
	MemberLeftGroup   Type = "member_left_group"
	AdminTransferred  Type = "admin_transferred"
	GroupSoftDeleted  Type = "group_soft_deleted"
	GroupDeleted      Type = "group_deleted"
)

// Event is one state change addressed to a set of users.
//
// Payload values must be JSON-like: string, bool, float64, int, int64,
// []any, map[string]any or nil.
type Event struct {
	Type       Type
	Targets    []string
	Payload    map[string]any
	OccurredAt time.Time
}

// Sink receives events.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Emit(ctx context.Context, event Event) error { return f(ctx, event) }

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }

// LogSink writes events to the structured log.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(ctx context.Context, event Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Ledger event",
		"type", event.Type,
		"targets", len(event.Targets),
		"payload", event.Payload,
	)
	return nil
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
