// Package ledger implements the consistency core: balance queries,
// redistribution of a departing participant's share, and the group lifecycle
// from active through soft-delete to purge.
//
// Every mutation runs in one store transaction. Validation happens before the
// first write; events go to the sink only after commit.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/storage"
)

const (
	// DefaultRetention is how long a soft-deleted group stays readable before purge.
	DefaultRetention = 4 * 24 * time.Hour

	// DefaultMaxRetries bounds transaction retries after a concurrent modification.
	DefaultMaxRetries = 3

	day = 24 * time.Hour
)

// Engine runs ledger operations against a store.
type Engine struct {
	store      storage.Store
	sink       events.Sink
	settings   SettingsProvider
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	retention  time.Duration
	maxRetries int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets where events go. The default discards them.
func WithSink(sink events.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithSettings sets the feature flag provider.
func WithSettings(p SettingsProvider) Option {
	return func(e *Engine) { e.settings = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRetention sets the soft-delete grace window. Non-positive values keep the default.
func WithRetention(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.retention = d
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(e *Engine) { e.maxRetries = n }
}

// New creates an engine over store.
func New(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		sink:       events.Nop{},
		settings:   StaticSettings{},
		logger:     slog.Default(),
		now:        time.Now,
		retention:  DefaultRetention,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retention returns the soft-delete grace window.
func (e *Engine) Retention() time.Duration {
	return e.retention
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// mutate runs fn as a mutating operation: it reads settings once, refuses
// work in maintenance mode and runs fn in a retried transaction.
func (e *Engine) mutate(ctx context.Context, op string, fn func(tx storage.Tx, s Settings) error) (err error) {
	start := time.Now()
	defer func() { e.metrics.ObserveOperation(op, start, err) }()

	s, err := e.settings.Settings(ctx)
	if err != nil {
		return classify(op, err)
	}
	if s.MaintenanceMode {
		return newError(ErrUnavailable, op, "maintenance mode is on")
	}

	return e.inTx(ctx, op, func(tx storage.Tx) error { return fn(tx, s) })
}

// inTx runs fn in a transaction and reruns it from scratch when it lost a
// compare-and-set to a concurrent writer.
func (e *Engine) inTx(ctx context.Context, op string, fn func(tx storage.Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := e.store.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt >= e.maxRetries {
			return classify(op, err)
		}
		e.metrics.TransactionRetried(op)
		e.logger.WarnContext(ctx, "Retrying after concurrent modification",
			"operation", op,
			"attempt", attempt+1,
			"error", err,
		)
	}
}

// emit hands an event to the sink. Failures are logged and never returned.
func (e *Engine) emit(ctx context.Context, typ events.Type, targets []string, payload map[string]any) {
	if len(targets) == 0 {
		return
	}
	event := events.Event{
		Type:       typ,
		Targets:    targets,
		Payload:    payload,
		OccurredAt: e.clock(),
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "Event sink panicked", "type", typ, "panic", r)
			e.metrics.EventFailed(string(typ))
		}
	}()

	if err := e.sink.Emit(context.WithoutCancel(ctx), event); err != nil {
		e.logger.WarnContext(ctx, "Event sink failed", "type", typ, "targets", len(targets), "error", err)
		e.metrics.EventFailed(string(typ))
		return
	}
	e.metrics.EventEmitted(string(typ))
}
