// Package dbx holds the database helpers shared by the Postgres repositories
// of the server and the sqlite repositories of the CLI.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql the repositories use, so one
// repository type works on both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back when fn fails or panics; panics are rethrown.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// MaxTxAttempts bounds how often WithTxRetry starts a transaction.
const MaxTxAttempts = 3

// WithTxRetry is WithTx that starts over when the database aborted the
// transaction because of a concurrent writer (see IsRetryable). fn may run
// more than once and must not have side effects outside tx.
func WithTxRetry(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	var err error
	for attempt := 0; attempt < MaxTxAttempts; attempt++ {
		err = WithTx(ctx, db, opts, fn)
		if !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}
