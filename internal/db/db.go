package db

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
)

var DB *sql.DB

const schema = `
CREATE TABLE IF NOT EXISTS payments (
	id           UUID PRIMARY KEY,
	session_id   UUID NOT NULL,
	from_address TEXT NOT NULL,
	to_address   TEXT NOT NULL,
	amount       TEXT NOT NULL,
	base_units   NUMERIC(78, 0) NOT NULL,
	tx_hash      TEXT,
	status       TEXT NOT NULL,
	error        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS payments_from_address_idx ON payments (from_address, created_at DESC);
`

// InitDB opens the Postgres connection used by the payment ledger.
func InitDB(dsn string) error {
	if dsn == "" {
		return errors.New("database url is empty")
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return err
	}
	DB = conn
	return nil
}

// EnsureSchema creates the ledger tables if they do not exist yet.
func EnsureSchema(ctx context.Context) error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	_, err := DB.ExecContext(ctx, schema)
	return err
}

func CloseDB() error {
	if DB == nil {
		return nil
	}
	err := DB.Close()
	DB = nil
	return err
}
