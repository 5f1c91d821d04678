// Package cli implements ledgerctl, the operator command line for a ledger database.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

// app carries the flags and the lazily opened store shared by every command.
type app struct {
	flagJSON bool
	flagDB   string

	cfg    *config.Config
	store  *sqlite.SQLiteStore
	engine *ledger.Engine
}

// NewRootCommand builds the ledgerctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate a splitledger database from the terminal",
		Long: `ledgerctl runs one-shot maintenance against a ledger database:
purging expired groups, inspecting balances and minting local tokens.

Examples:
  ledgerctl purge                      Purge groups past their retention window
  ledgerctl balance <user> <user>      Show what the second user owes the first
  ledgerctl deleted-groups <user>      List recently deleted groups
  ledgerctl token <user>               Mint a JWT for local testing`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load()
			if a.flagDB != "" {
				a.cfg.DB.Path = a.flagDB
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&a.flagJSON, "json", false, "Output as JSON")
	root.PersistentFlags().StringVar(&a.flagDB, "db", "", "Database path (default: DB_PATH or ./data/ledger.db)")

	root.AddCommand(
		newPurgeCommand(a),
		newBalanceCommand(a),
		newDeletedGroupsCommand(a),
		newGroupBalancesCommand(a),
		newUserCommand(a),
		newTokenCommand(a),
		newSettingsCommand(a),
	)
	return root
}

// Execute runs ledgerctl with the process arguments.
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// withEngine opens the database, runs fn and closes the database again.
func (a *app) withEngine(fn func(engine *ledger.Engine) error) (err error) {
	if err := a.open(); err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	return fn(a.engine)
}

func (a *app) open() error {
	store, err := sqlite.New(a.cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", a.cfg.DB.Path, err)
	}

	defaults := ledger.Settings{
		MaintenanceMode:    a.cfg.Ledger.MaintenanceMode,
		MaxGroupsPerUser:   a.cfg.Ledger.MaxGroupsPerUser,
		MaxExpensesPerUser: a.cfg.Ledger.MaxExpensesPerUser,
	}
	// Notifications are written synchronously; the process exits right after.
	a.store = store
	a.engine = ledger.New(store,
		ledger.WithSink(events.NewNotificationSink(store)),
		ledger.WithSettings(ledger.NewStoreSettings(store, defaults)),
		ledger.WithLogger(slog.Default()),
		ledger.WithRetention(a.cfg.Ledger.RetentionWindow),
		ledger.WithMaxRetries(a.cfg.Ledger.MaxRetries),
	)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store, a.engine = nil, nil
	return err
}
