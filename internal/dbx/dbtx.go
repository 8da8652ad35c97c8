// Package dbx holds the database plumbing shared by repositories and
// services: the DBTX handle a repository is bound to, and helpers that run a
// unit of work in a transaction of its own.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is what a repository needs to run statements. *sql.DB binds it to
// the pool, *sql.Tx to an open transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner opens transactions. *sql.DB satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// WithTx runs fn in a new transaction on db. It commits when fn returns nil
// and rolls back when fn fails or panics; a panic is re-raised after the
// rollback. The transaction never joins one the caller may hold, so a nil
// result means the work is durable.
func WithTx(ctx context.Context, db TxBeginner, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
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

	return fn(ctx, tx)
}

// WithTxValue is WithTx for a unit of work that produces a value. The value
// is returned only if the transaction committed.
func WithTxValue[T any](ctx context.Context, db TxBeginner, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) (T, error)) (T, error) {
	var v T
	err := WithTx(ctx, db, opts, func(ctx context.Context, tx DBTX) error {
		var err error
		v, err = fn(ctx, tx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
