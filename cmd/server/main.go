package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/scheduler"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/logging"
)

func main() {
	cfg := config.Load()
	logging.SetupWith(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DB.Path)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Notifications are written after each ledger commit, off the request path.
	dispatcher := events.NewDispatcher(events.Multi{
		events.NewNotificationSink(store),
		events.LogSink{Logger: slog.Default()},
	}, cfg.Events.QueueSize, m)
	defer dispatcher.Close()

	defaults := ledger.Settings{
		MaintenanceMode:    cfg.Ledger.MaintenanceMode,
		MaxGroupsPerUser:   cfg.Ledger.MaxGroupsPerUser,
		MaxExpensesPerUser: cfg.Ledger.MaxExpensesPerUser,
	}
	engine := ledger.New(store,
		ledger.WithSink(dispatcher),
		ledger.WithSettings(ledger.NewStoreSettings(store, defaults)),
		ledger.WithMetrics(m),
		ledger.WithRetention(cfg.Ledger.RetentionWindow),
		ledger.WithMaxRetries(cfg.Ledger.MaxRetries),
	)

	cleanup := scheduler.NewCleanupScheduler(engine)
	cleanup.Interval = cfg.Cleanup.Interval
	cleanup.Enabled = cfg.Cleanup.Enabled
	cleanup.Metrics = m
	cleanup.Start()
	defer cleanup.Stop()

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpirationHours)*time.Hour)
	router := newRouter(service.NewLedgerService(engine), jwtManager, reg, cfg.Server.CORSAllowedOrigins)

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", server.Addr, "url", "http://localhost"+server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
