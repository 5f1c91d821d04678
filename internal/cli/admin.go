package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/storage"
)

func newUserCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage ledger users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <display-name>",
		Short: "Register a user and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(engine *ledger.Engine) error {
				user, err := engine.CreateUser(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if a.flagJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]string{
						"id":          user.ID,
						"displayName": user.DisplayName,
					})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), user.ID)
				return err
			})
		},
	})
	return cmd
}

func newTokenCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user>",
		Short: "Mint a bearer token for an existing user",
		Long: `Mint a JWT signed with JWT_SECRET for local testing against the RPC server.
The user must exist in the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(*ledger.Engine) error {
				if _, err := a.store.GetUser(cmd.Context(), args[0]); err != nil {
					if errors.Is(err, storage.ErrNotFound) {
						return fmt.Errorf("user %s not found", args[0])
					}
					return err
				}

				ttl := time.Duration(a.cfg.JWT.ExpirationHours) * time.Hour
				token, err := auth.NewJWTManager(a.cfg.JWT.Secret, ttl).Generate(args[0])
				if err != nil {
					return err
				}

				if a.flagJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]string{"token": token})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
				return err
			})
		},
	}
}

func newSettingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change stored system settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(*ledger.Engine) error {
				stored := make(map[string]string, len(ledger.SettingKeys))
				for _, key := range ledger.SettingKeys {
					v, err := a.store.GetSetting(cmd.Context(), key)
					if errors.Is(err, storage.ErrNotFound) {
						continue
					}
					if err != nil {
						return err
					}
					stored[key] = v
				}

				if a.flagJSON {
					return writeJSON(cmd.OutOrStdout(), stored)
				}
				t := newTable(cmd.OutOrStdout())
				fmt.Fprintln(t, "KEY\tVALUE")
				for _, key := range ledger.SettingKeys {
					v, ok := stored[key]
					if !ok {
						v = "-"
					}
					fmt.Fprintf(t, "%s\t%s\n", key, v)
				}
				return t.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting; it applies to the next ledger call",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := ledger.ValidateSetting(key, value); err != nil {
				return err
			}

			return a.withEngine(func(*ledger.Engine) error {
				err := a.store.WithTx(cmd.Context(), func(tx storage.Tx) error {
					return tx.PutSetting(cmd.Context(), key, value)
				})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
				return err
			})
		},
	})
	return cmd
}
