package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/splitledger/internal/metrics"
)

// deliveryTimeout bounds one downstream Emit.
const deliveryTimeout = 10 * time.Second

// Dispatcher queues events and delivers them to the next sink on a single
// worker goroutine. Emit never blocks: when the queue is full the event is
// dropped and logged.
type Dispatcher struct {
	next    Sink
	metrics *metrics.Metrics
	queue   chan Event

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
}

// NewDispatcher starts the worker. m may be nil.
func NewDispatcher(next Sink, size int, m *metrics.Metrics) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	d := &Dispatcher{
		next:    next,
		metrics: m,
		queue:   make(chan Event, size),
		done:    make(chan struct{}),
	}
	go d.processQueue()
	return d
}

// Emit enqueues the event. The context is not carried to delivery.
func (d *Dispatcher) Emit(_ context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		slog.Warn("Event dispatcher closed, dropping event", "type", event.Type)
		d.metrics.EventDropped()
		return nil
	}

	select {
	case d.queue <- event:
	default:
		slog.Warn("Event queue full, dropping event", "type", event.Type, "targets", len(event.Targets))
		d.metrics.EventDropped()
	}
	return nil
}

func (d *Dispatcher) processQueue() {
	defer close(d.done)
	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := d.next.Emit(ctx, event); err != nil {
			slog.Error("Event delivery failed", "type", event.Type, "error", err)
			d.metrics.EventFailed(string(event.Type))
		}
		cancel()
	}
}

// Close stops accepting events and waits until queued ones are delivered.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	<-d.done
}
