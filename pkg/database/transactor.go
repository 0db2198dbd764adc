package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrRollbackFailed marks an error whose transaction could not be rolled back.
var ErrRollbackFailed = errors.New("rollback failed")

// TxFunc runs inside a transaction. Repositories accept the handed executor
// so every statement in fn joins the same unit of work.
type TxFunc func(ctx context.Context, tx sqlx.ExtContext) error

// Transactor runs functions inside a single database transaction.
type Transactor struct {
	db *sqlx.DB
}

// NewTransactor constructs a transactor over db.
func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise. A failed
// rollback is joined onto the original error.
func (t *Transactor) WithinTx(ctx context.Context, fn TxFunc) (err error) {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("%w: %w", ErrRollbackFailed, rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
