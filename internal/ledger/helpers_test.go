package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type captureSink struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (s *captureSink) Emit(_ context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *captureSink) ofType(t events.Type) []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *sqlite.SQLiteStore
	clock  *fakeClock
	sink   *captureSink
	engine *Engine
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{t: t, ctx: context.Background(), store: store, clock: newFakeClock(), sink: &captureSink{}}
	base := []Option{WithClock(f.clock.Now), WithSink(f.sink)}
	f.engine = New(store, append(base, opts...)...)
	return f
}

// withStore rebuilds the engine over a different store, keeping clock and sink.
func (f *fixture) withStore(store storage.Store, opts ...Option) *Engine {
	base := []Option{WithClock(f.clock.Now), WithSink(f.sink)}
	return New(store, append(base, opts...)...)
}

func (f *fixture) users(names ...string) {
	f.t.Helper()
	require.NoError(f.t, f.store.WithTx(f.ctx, func(tx storage.Tx) error {
		for _, n := range names {
			if err := tx.CreateUser(f.ctx, &models.User{ID: n, DisplayName: n, CreatedAt: f.clock.Now()}); err != nil {
				return err
			}
		}
		return nil
	}))
}

// group creates a group with the first user as admin.
func (f *fixture) group(admin string, members ...string) *models.Group {
	f.t.Helper()
	g, err := f.engine.CreateGroup(f.ctx, "Trip", admin, members)
	require.NoError(f.t, err)
	return g
}

type split struct {
	user   string
	amount string
}

// expense creates an EXACT expense in order of the given splits.
func (f *fixture) expense(groupID, paidBy string, splits ...split) *models.Expense {
	f.t.Helper()
	total := money.Zero
	plan := make([]calculator.PlanEntry, len(splits))
	for i, s := range splits {
		plan[i] = calculator.PlanEntry{UserID: s.user, Value: money.MustParse(s.amount)}
		total = total.Add(plan[i].Value)
	}
	exp, err := f.engine.CreateExpense(f.ctx, NewExpense{
		Description: "Dinner",
		Amount:      total,
		PaidBy:      paidBy,
		GroupID:     groupID,
		SplitType:   models.SplitExact,
		Splits:      plan,
	}, paidBy)
	require.NoError(f.t, err)
	return exp
}

func (f *fixture) splits(expenseID string) map[string]string {
	f.t.Helper()
	exp, err := f.store.GetExpense(f.ctx, expenseID)
	require.NoError(f.t, err)
	out := map[string]string{}
	for _, s := range exp.Splits {
		out[s.UserID] = money.Format(s.Amount)
	}
	return out
}

func (f *fixture) sqlExec(query string, args ...any) {
	f.t.Helper()
	_, err := f.store.DB().ExecContext(f.ctx, query, args...)
	require.NoError(f.t, err)
}

func (f *fixture) count(query string, args ...any) int {
	f.t.Helper()
	var n int
	require.NoError(f.t, f.store.DB().QueryRowContext(f.ctx, query, args...).Scan(&n))
	return n
}

// faultyStore wraps every transaction handed to the engine.
type faultyStore struct {
	storage.Store
	wrap func(storage.Tx) storage.Tx
}

func (s *faultyStore) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx storage.Tx) error { return fn(s.wrap(tx)) })
}

var errInjected = errors.New("injected failure")

type faultyTx struct {
	storage.Tx
	failDeleteSplit bool
	conflicts       *int
}

func (t *faultyTx) DeleteSplit(ctx context.Context, expenseID, userID string) error {
	if t.failDeleteSplit {
		return errInjected
	}
	return t.Tx.DeleteSplit(ctx, expenseID, userID)
}

func (t *faultyTx) BumpSplitVersion(ctx context.Context, expenseID string, expected int64) error {
	if t.conflicts != nil && *t.conflicts > 0 {
		*t.conflicts--
		return storage.ErrConcurrentModification
	}
	return t.Tx.BumpSplitVersion(ctx, expenseID, expected)
}
