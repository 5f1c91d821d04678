package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

type deletedGroupJSON struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DeletedAt     string `json:"deletedAt"`
	DaysRemaining int    `json:"daysRemaining"`
}

func deletedGroupsTable(w io.Writer, groups []models.DeletedGroup) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "No recently deleted groups.")
		return err
	}

	t := newTable(w)
	fmt.Fprintln(t, "ID\tNAME\tDELETED\tDAYS LEFT")
	for _, g := range groups {
		fmt.Fprintf(t, "%s\t%s\t%s\t%d\n", g.ID, g.Name, g.DeletedAt.Format(time.RFC3339), g.DaysRemaining)
	}
	return t.Flush()
}

type memberBalanceJSON struct {
	UserID     string `json:"userId"`
	NetBalance string `json:"netBalance"`
	TotalPaid  string `json:"totalPaid"`
	TotalOwed  string `json:"totalOwed"`
}

type settlementJSON struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type groupBalancesJSON struct {
	GroupID     string              `json:"groupId"`
	Balances    []memberBalanceJSON `json:"balances"`
	Settlements []settlementJSON    `json:"settlements"`
}

func toGroupBalancesJSON(r *ledger.GroupBalanceReport) groupBalancesJSON {
	out := groupBalancesJSON{
		GroupID:     r.GroupID,
		Balances:    make([]memberBalanceJSON, 0, len(r.Balances)),
		Settlements: make([]settlementJSON, 0, len(r.Settlements)),
	}
	for _, b := range r.Balances {
		out.Balances = append(out.Balances, memberBalanceJSON{
			UserID:     b.UserID,
			NetBalance: money.Format(b.NetBalance),
			TotalPaid:  money.Format(b.TotalPaid),
			TotalOwed:  money.Format(b.TotalOwed),
		})
	}
	for _, s := range r.Settlements {
		out.Settlements = append(out.Settlements, settlementJSON{
			From:   s.From,
			To:     s.To,
			Amount: money.Format(s.Amount),
		})
	}
	return out
}

func groupBalancesTable(w io.Writer, r *ledger.GroupBalanceReport) error {
	t := newTable(w)
	fmt.Fprintln(t, "USER\tNET\tPAID\tOWED")
	for _, b := range r.Balances {
		fmt.Fprintf(t, "%s\t%s\t%s\t%s\n", b.UserID, money.Format(b.NetBalance), money.Format(b.TotalPaid), money.Format(b.TotalOwed))
	}
	if err := t.Flush(); err != nil {
		return err
	}

	if len(r.Settlements) == 0 {
		_, err := fmt.Fprintln(w, "\nAll settled up.")
		return err
	}
	fmt.Fprintln(w, "\nSuggested payments:")
	for _, s := range r.Settlements {
		fmt.Fprintf(w, "  %s -> %s: %s\n", s.From, s.To, money.Format(s.Amount))
	}
	return nil
}
