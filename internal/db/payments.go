package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"token-payment-api/internal/model"
)

// Ledger stores every payment submission attempt.
type Ledger struct {
	conn *sql.DB
}

func NewLedger(conn *sql.DB) *Ledger {
	return &Ledger{conn: conn}
}

func (l *Ledger) RecordPayment(ctx context.Context, p *model.Payment) error {
	if p == nil {
		return errors.New("nil payment")
	}
	_, err := l.conn.ExecContext(ctx,
		`INSERT INTO payments (id, session_id, from_address, to_address, amount, base_units, tx_hash, status, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), $10)`,
		p.ID, p.SessionID, strings.ToLower(p.From), strings.ToLower(p.To), p.Amount, p.BaseUnits,
		p.TxHash, p.Status, p.Error, p.CreatedAt)
	return err
}

// ListPayments returns the most recent attempts sent from address, newest first.
func (l *Ledger) ListPayments(ctx context.Context, address string, limit int) ([]model.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := l.conn.QueryContext(ctx,
		`SELECT id, session_id, from_address, to_address, amount, base_units::TEXT,
		        COALESCE(tx_hash, ''), status, COALESCE(error, ''), created_at
		 FROM payments WHERE from_address = $1
		 ORDER BY created_at DESC LIMIT $2`,
		strings.ToLower(address), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.SessionID, &p.From, &p.To, &p.Amount, &p.BaseUnits,
			&p.TxHash, &p.Status, &p.Error, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
