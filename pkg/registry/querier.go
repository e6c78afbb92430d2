package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prisken/hubstore/pkg/domain"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so repository methods
// can run standalone or inside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx runs fn inside a transaction. If fn returns an error, the transaction
// is rolled back and the returned error matches domain.ErrTransactionFailed
// as well as fn's own error, so callers observe either full success or no
// change.
func Tx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(domain.ErrTransactionFailed, err, fmt.Errorf("rollback: %w", rbErr))
		}
		return errors.Join(domain.ErrTransactionFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Join(domain.ErrTransactionFailed, fmt.Errorf("commit: %w", err))
	}
	return nil
}
