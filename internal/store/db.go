package store

import (
	"context"
	"database/sql"
)

// DBTX abstracts the read/write surface shared by *sql.DB and *sql.Tx, so
// store implementations work with either a pooled connection or a transaction.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
