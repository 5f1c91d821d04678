// Package scheduler runs the periodic purge of soft-deleted groups.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmynk/splitledger/internal/metrics"
)

// DefaultInterval is how often the cleanup runs unless configured otherwise.
const DefaultInterval = 24 * time.Hour

// Purger removes groups whose retention window has elapsed.
type Purger interface {
	PurgeExpiredGroups(ctx context.Context) (int, error)
}

// CleanupScheduler invokes a Purger once at start and then on every tick.
// A run that would overlap one still in flight is skipped.
type CleanupScheduler struct {
	Purger   Purger
	Interval time.Duration
	Enabled  bool
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewCleanupScheduler creates an enabled scheduler with the default interval.
func NewCleanupScheduler(p Purger) *CleanupScheduler {
	return &CleanupScheduler{
		Purger:   p,
		Interval: DefaultInterval,
		Enabled:  true,
		Logger:   slog.Default(),
	}
}

// Start launches the background goroutine. It is a no-op when disabled or
// already started.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger().Info("Cleanup scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	if s.Interval <= 0 {
		s.logger().Warn("Invalid cleanup interval, using default", "interval", s.Interval, "default", DefaultInterval)
		s.Interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(ctx, s.ticker, s.stop)

	s.logger().Info("Cleanup scheduler started", "interval", s.Interval)
}

// Stop cancels an in-flight run and waits for the goroutine to exit.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.cancel()
	s.wg.Wait()
	s.ticker = nil
	s.logger().Info("Cleanup scheduler stopped")
}

func (s *CleanupScheduler) run(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunNow(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow performs one purge pass. It reports false without purging when
// another pass is already running.
func (s *CleanupScheduler) RunNow(ctx context.Context) (purged int, ran bool) {
	if !s.running.CompareAndSwap(false, true) {
		s.Metrics.CleanupRun("skipped")
		s.logger().Debug("Cleanup already running, skipping")
		return 0, false
	}
	defer s.running.Store(false)

	start := time.Now()
	purged, err := s.Purger.PurgeExpiredGroups(ctx)
	if err != nil {
		s.Metrics.CleanupRun("error")
		s.logger().Error("Cleanup run finished with errors",
			"purged", purged,
			"duration", time.Since(start),
			"error", err,
		)
		return purged, true
	}

	s.Metrics.CleanupRun("ok")
	if purged > 0 {
		s.logger().Info("Cleanup run completed", "purged", purged, "duration", time.Since(start))
	}
	return purged, true
}

// NextRunTime returns when the next scheduled pass will occur at the earliest.
func (s *CleanupScheduler) NextRunTime() time.Time {
	return time.Now().Add(s.Interval)
}

func (s *CleanupScheduler) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
