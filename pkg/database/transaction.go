package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type TxContextKey string

const txKey = TxContextKey("tx-context-key")

// Tx is the transaction surface repositories and services use. Commit and
// Rollback are no-ops on a joined (non-owning) transaction, so a repository
// method called inside a service-owned transaction can keep the usual
// GetTx / defer Rollback / Commit shape without closing the outer unit.
type Tx interface {
	IsOpen() bool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Transaction wraps sqlx.Tx with ownership tracking.
type Transaction struct {
	*sqlx.Tx
	logger   ectologger.Logger
	isClosed bool
	isOwner  bool
}

func NewTx(tx *sqlx.Tx, logger ectologger.Logger) Tx {
	return &Transaction{
		Tx:      tx,
		logger:  logger,
		isOwner: true,
	}
}

// GetTx returns the open transaction carried by ctx, or begins a new one and
// stores it on the returned context. Only the caller that began the
// transaction can commit or roll it back; joiners get no-op Commit/Rollback.
func GetTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if existing, ok := ctx.Value(txKey).(*Transaction); ok && existing != nil && existing.IsOpen() {
		joined := &Transaction{
			Tx:      existing.Tx,
			logger:  logger,
			isOwner: false,
		}
		return ctx, joined, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return ctx, nil, fmt.Errorf("error while beginning transaction")
	}

	owner := &Transaction{
		Tx:      tx,
		logger:  logger,
		isOwner: true,
	}

	ctx = context.WithValue(ctx, txKey, owner)
	return ctx, owner, nil
}

func (t *Transaction) IsOpen() bool {
	return !t.isClosed
}

func (t *Transaction) Rollback(ctx context.Context) error {
	if t.isClosed || !t.isOwner {
		return nil
	}

	if err := t.Tx.Rollback(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while rolling back transaction")
		return fmt.Errorf("error while rolling back transaction")
	}

	t.isClosed = true
	return nil
}

func (t *Transaction) Commit(ctx context.Context) error {
	if t.isClosed || !t.isOwner {
		return nil
	}

	if err := t.Tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while committing transaction")
		return fmt.Errorf("error while committing transaction")
	}

	t.isClosed = true
	return nil
}
