package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// NewTxRunner returns the checkout unit of work. With atomic=false every write
// commits on its own and the caller compensates.
func NewTxRunner(db *sql.DB, atomic bool) usecase.TxRunner {
	if atomic {
		return &MySQLTxRunner{db: db}
	}
	return &SequentialRunner{db: db}
}

func reposFor(q DBTX) usecase.Repos {
	return usecase.Repos{
		Orders:   NewMySQLOrderRepo(q),
		Payments: NewMySQLPaymentRepo(q),
		Outbox:   NewMySQLOutboxRepo(q),
		Carts:    NewMySQLCartRepo(q),
	}
}

type MySQLTxRunner struct{ db *sql.DB }

func (r *MySQLTxRunner) Atomic() bool { return true }

func (r *MySQLTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, rp usecase.Repos) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(ctx, reposFor(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.FromCtx(ctx).Error("rollback", "err", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type SequentialRunner struct{ db *sql.DB }

func (r *SequentialRunner) Atomic() bool { return false }

func (r *SequentialRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, rp usecase.Repos) error) error {
	return fn(ctx, reposFor(r.db))
}

var (
	_ usecase.TxRunner = (*MySQLTxRunner)(nil)
	_ usecase.TxRunner = (*SequentialRunner)(nil)
)
