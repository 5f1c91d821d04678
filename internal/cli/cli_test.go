package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

type testEnv struct {
	t      *testing.T
	dbPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	t.Setenv("RETENTION_WINDOW", "96h")
	t.Setenv("MAINTENANCE_MODE", "false")
	return &testEnv{t: t, dbPath: filepath.Join(t.TempDir(), "ledger.db")}
}

// run executes ledgerctl against the test database and returns its stdout.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--db", e.dbPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "ledgerctl %s", strings.Join(args, " "))
	return out
}

// seed opens the database directly so a test can build state the CLI does not expose.
func (e *testEnv) seed(fn func(ctx context.Context, engine *ledger.Engine), opts ...ledger.Option) {
	e.t.Helper()
	store, err := sqlite.New(e.dbPath)
	require.NoError(e.t, err)
	defer store.Close()
	fn(context.Background(), ledger.New(store, opts...))
}

func (e *testEnv) user(name string) string {
	e.t.Helper()
	return strings.TrimSpace(e.mustRun("user", "create", name))
}

func TestUserCreate(t *testing.T) {
	env := newTestEnv(t)

	id := env.user("Alice")
	assert.Len(t, id, 36)

	out := env.mustRun("--json", "user", "create", "Bob")
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Bob", got["displayName"])
	assert.NotEmpty(t, got["id"])

	_, err := env.run("user", "create", "  ")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestBalance(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.user("Alice"), env.user("Bob")

	var groupID string
	env.seed(func(ctx context.Context, engine *ledger.Engine) {
		g, err := engine.CreateGroup(ctx, "Trip", alice, []string{bob})
		require.NoError(t, err)
		groupID = g.ID
		_, err = engine.CreateExpense(ctx, ledger.NewExpense{
			Description: "Hotel",
			Amount:      money.MustParse("90.00"),
			GroupID:     g.ID,
			SplitType:   models.SplitEqual,
			Splits:      []calculator.PlanEntry{{UserID: alice}, {UserID: bob}},
		}, alice)
		require.NoError(t, err)
	})

	assert.Equal(t, "45.00\n", env.mustRun("balance", alice, bob))
	assert.Equal(t, "-45.00\n", env.mustRun("balance", bob, alice))
	assert.Equal(t, "45.00\n", env.mustRun("balance", alice, bob, "--group", groupID))

	out := env.mustRun("--json", "balance", alice, bob)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "45.00", got["balance"])
	assert.Equal(t, alice, got["userA"])

	_, err := env.run("balance", alice, "nobody")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = env.run("balance", alice)
	assert.Error(t, err)
}

func TestGroupBalances(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.user("Alice"), env.user("Bob")

	var groupID string
	env.seed(func(ctx context.Context, engine *ledger.Engine) {
		g, err := engine.CreateGroup(ctx, "Flat", alice, []string{bob})
		require.NoError(t, err)
		groupID = g.ID
		_, err = engine.CreateExpense(ctx, ledger.NewExpense{
			Description: "Rent",
			Amount:      money.MustParse("30.00"),
			GroupID:     g.ID,
			SplitType:   models.SplitExact,
			Splits: []calculator.PlanEntry{
				{UserID: alice, Value: money.MustParse("10.00")},
				{UserID: bob, Value: money.MustParse("20.00")},
			},
		}, alice)
		require.NoError(t, err)
	})

	out := env.mustRun("group-balances", groupID)
	assert.Contains(t, out, "USER")
	assert.Contains(t, out, bob+" -> "+alice+": 20.00")

	out = env.mustRun("--json", "group-balances", groupID)
	var got groupBalancesJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, groupID, got.GroupID)
	require.Len(t, got.Settlements, 1)
	assert.Equal(t, settlementJSON{From: bob, To: alice, Amount: "20.00"}, got.Settlements[0])

	nets := map[string]string{}
	for _, b := range got.Balances {
		nets[b.UserID] = b.NetBalance
	}
	assert.Equal(t, map[string]string{alice: "20.00", bob: "-20.00"}, nets)

	_, err := env.run("group-balances", "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDeletedGroupsAndPurge(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("Alice")

	now := time.Now()
	var expiredID, recentID string
	env.seed(func(ctx context.Context, engine *ledger.Engine) {
		g, err := engine.CreateGroup(ctx, "Old trip", alice, nil)
		require.NoError(t, err)
		require.NoError(t, engine.SoftDeleteGroup(ctx, g.ID, alice))
		expiredID = g.ID
	}, ledger.WithClock(func() time.Time { return now.Add(-100 * time.Hour) }))
	env.seed(func(ctx context.Context, engine *ledger.Engine) {
		g, err := engine.CreateGroup(ctx, "New trip", alice, nil)
		require.NoError(t, err)
		require.NoError(t, engine.SoftDeleteGroup(ctx, g.ID, alice))
		recentID = g.ID
	}, ledger.WithClock(func() time.Time { return now.Add(-time.Hour) }))

	out := env.mustRun("deleted-groups", alice)
	assert.Contains(t, out, "New trip")
	assert.NotContains(t, out, "Old trip")

	out = env.mustRun("--json", "deleted-groups", alice)
	var listed []deletedGroupJSON
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, recentID, listed[0].ID)
	assert.Equal(t, 4, listed[0].DaysRemaining)

	out = env.mustRun("--json", "purge")
	var purged map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &purged))
	assert.Equal(t, 1, purged["purged"])

	assert.Equal(t, "Purged 0 group(s).\n", env.mustRun("purge"))

	env.seed(func(ctx context.Context, engine *ledger.Engine) {
		_, err := engine.GroupBalances(ctx, expiredID)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
		_, err = engine.GroupBalances(ctx, recentID)
		assert.NoError(t, err)
	})

	assert.Equal(t, "No recently deleted groups.\n", env.mustRun("deleted-groups", "nobody"))
}

func TestToken(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("Alice")

	token := strings.TrimSpace(env.mustRun("token", alice))
	claims, err := auth.NewJWTManager("cli-test-secret", time.Hour).Validate(token)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.UserID)

	_, err = env.run("token", "nobody")
	assert.ErrorContains(t, err, "not found")
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.user("Alice"), env.user("Bob")

	out := env.mustRun("settings", "get")
	assert.Contains(t, out, ledger.SettingMaintenanceMode)

	assert.Equal(t, "maintenance_mode = true\n", env.mustRun("settings", "set", "maintenance_mode", "true"))

	out = env.mustRun("--json", "settings", "get")
	var stored map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &stored))
	assert.Equal(t, map[string]string{ledger.SettingMaintenanceMode: "true"}, stored)

	_, err := env.run("user", "create", "Carol")
	assert.ErrorIs(t, err, ledger.ErrUnavailable)

	// Reads and the purge keep working in maintenance mode.
	assert.Equal(t, "0.00\n", env.mustRun("balance", alice, bob))
	env.mustRun("purge")

	env.mustRun("settings", "set", "maintenance_mode", "false")
	env.user("Carol")

	_, err = env.run("settings", "set", "maintenance_mode", "maybe")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	_, err = env.run("settings", "set", "colour", "blue")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}
