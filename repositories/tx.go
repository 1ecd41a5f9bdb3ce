package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// TxRunner binds WithinTransaction to a concrete connection pool.
// Services take this instead of *sql.DB so tests can swap in a fake
// that snapshots and restores in-memory state.
type TxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) WithinTransaction(ctx context.Context, fn func(exec SQLExecutor) error) error {
	return WithinTransaction(ctx, r.db, fn)
}

// WithinTransaction runs fn inside a single database transaction and
// passes the transaction down as a SQLExecutor for repository calls.
// Any error from fn rolls the whole transaction back, so callers either
// see every write or none of them.
func WithinTransaction(ctx context.Context, db *sql.DB, fn func(exec SQLExecutor) error) (txErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				txErr = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", txErr, rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()

	txErr = fn(tx)
	return txErr
}

// checkAffectedRows maps a zero-row UPDATE or DELETE to the caller's
// sentinel, which is how conditional fill-status claims detect that a
// concurrent writer got there first.
func checkAffectedRows(result sql.Result, zeroRowsError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return zeroRowsError
	}
	return nil
}
