package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

func TestRouter(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := prometheus.NewRegistry()
	engine := ledger.New(store, ledger.WithMetrics(metrics.New(reg)))
	jwtManager := auth.NewJWTManager("secret", time.Hour)

	server := httptest.NewServer(newRouter(service.NewLedgerService(engine), jwtManager, reg, []string{"*"}))
	t.Cleanup(server.Close)

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("rpc requires auth", func(t *testing.T) {
		client := service.NewLedgerServiceClient(http.DefaultClient, server.URL)
		_, err := client.ListDeletedGroups(context.Background(), connect.NewRequest(&service.Empty{}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("rpc with token", func(t *testing.T) {
		token, err := jwtManager.Generate("alice")
		require.NoError(t, err)

		client := service.NewLedgerServiceClient(http.DefaultClient, server.URL)
		req := connect.NewRequest(&service.Empty{})
		req.Header().Set("Authorization", "Bearer "+token)
		resp, err := client.ListDeletedGroups(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, resp.Msg.Groups)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "splitledger_cleanup_groups_purged_total")
	})
}
