package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/money"
)

func newPurgeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove groups whose retention window has elapsed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(engine *ledger.Engine) error {
				purged, err := engine.PurgeExpiredGroups(cmd.Context())

				// Report partial progress before surfacing per-group failures.
				if a.flagJSON {
					if werr := writeJSON(cmd.OutOrStdout(), map[string]int{"purged": purged}); werr != nil {
						return werr
					}
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Purged %d group(s).\n", purged)
				}
				return err
			})
		},
	}
}

func newBalanceCommand(a *app) *cobra.Command {
	var groupID string

	cmd := &cobra.Command{
		Use:   "balance <user-a> <user-b>",
		Short: "Show what user-b owes user-a",
		Long: `Show the pairwise balance between two users. A positive amount means
user-b owes user-a, a negative amount means user-a owes user-b.

Without --group the balance covers personal expenses and active groups.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(engine *ledger.Engine) error {
				balance, err := engine.ComputeBalance(cmd.Context(), args[0], args[1], groupID)
				if err != nil {
					return err
				}

				if a.flagJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]string{
						"userA":   args[0],
						"userB":   args[1],
						"groupId": groupID,
						"balance": money.Format(balance),
					})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), money.Format(balance))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "Restrict the balance to one group")
	return cmd
}

func newDeletedGroupsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deleted-groups <user>",
		Short: "List a user's soft-deleted groups still inside the retention window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(engine *ledger.Engine) error {
				groups, err := engine.ListDeletedGroups(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if a.flagJSON {
					out := make([]deletedGroupJSON, 0, len(groups))
					for _, g := range groups {
						out = append(out, deletedGroupJSON{
							ID:            g.ID,
							Name:          g.Name,
							DeletedAt:     g.DeletedAt.Format(time.RFC3339),
							DaysRemaining: g.DaysRemaining,
						})
					}
					return writeJSON(cmd.OutOrStdout(), out)
				}
				return deletedGroupsTable(cmd.OutOrStdout(), groups)
			})
		},
	}
}

func newGroupBalancesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "group-balances <group>",
		Short: "Show net balances and suggested settlements for a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(engine *ledger.Engine) error {
				report, err := engine.GroupBalances(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if a.flagJSON {
					return writeJSON(cmd.OutOrStdout(), toGroupBalancesJSON(report))
				}
				return groupBalancesTable(cmd.OutOrStdout(), report)
			})
		},
	}
}
