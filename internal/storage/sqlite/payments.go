package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

const paymentColumns = "p.id, p.payer_id, p.payee_id, p.amount, p.currency, p.date, p.group_id, p.notes, p.created_at"

// CreatePayment persists a new payment.
func (c *conn) CreatePayment(ctx context.Context, p *models.Payment) error {
	_, err := c.q.ExecContext(ctx,
		`INSERT INTO payments (id, payer_id, payee_id, amount, currency, date, group_id, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PayerID, p.PayeeID, money.Format(p.Amount), p.Currency, toMillis(p.Date),
		nullIfEmpty(p.GroupID), p.Notes, toMillis(p.CreatedAt),
	)
	if err != nil {
		return wrapConstraint(err, "insert payment")
	}
	return nil
}

// ListPaymentsByGroup retrieves all payments for a group, oldest first.
func (c *conn) ListPaymentsByGroup(ctx context.Context, groupID string) ([]models.Payment, error) {
	return c.queryPayments(ctx,
		"SELECT "+paymentColumns+" FROM payments p WHERE p.group_id = ? ORDER BY p.date, p.id",
		groupID,
	)
}

// ListPaymentsBetween retrieves payments in either direction between two users.
func (c *conn) ListPaymentsBetween(ctx context.Context, userA, userB, includeGroupID string) ([]models.Payment, error) {
	return c.queryPayments(ctx,
		`SELECT `+paymentColumns+`
		 FROM payments p LEFT JOIN groups g ON g.id = p.group_id
		 WHERE ((p.payer_id = ? AND p.payee_id = ?) OR (p.payer_id = ? AND p.payee_id = ?))
		   AND `+visibleIn("p")+`
		 ORDER BY p.date, p.id`,
		userA, userB, userB, userA, includeGroupID,
	)
}

func (c *conn) queryPayments(ctx context.Context, query string, args ...any) ([]models.Payment, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var (
			p         models.Payment
			groupID   sql.NullString
			date      int64
			createdAt int64
		)
		if err := rows.Scan(&p.ID, &p.PayerID, &p.PayeeID, &p.Amount, &p.Currency, &date,
			&groupID, &p.Notes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.GroupID = groupID.String
		p.Date = fromMillis(date)
		p.CreatedAt = fromMillis(createdAt)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}
