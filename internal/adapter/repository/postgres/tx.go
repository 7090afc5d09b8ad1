package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/user/record-api/internal/domain"
)

type txKey struct{}

// TxManager implements domain.TransactionManager over database/sql. The open
// transaction travels in the context so that repository calls made inside
// WithTransaction resolve their statements against it, and so that a nested
// WithTransaction call detects the open scope and joins it instead of
// stacking a second transaction.
type TxManager struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTxManager creates a transaction manager bound to one connection pool.
func NewTxManager(db *sql.DB, logger *slog.Logger) *TxManager {
	return &TxManager{
		db:     db,
		logger: logger.With("component", "tx_manager"),
	}
}

var _ domain.TransactionManager = (*TxManager)(nil)

// WithTransaction begins a transaction, runs fn, commits on normal return,
// and rolls back on error or panic. A call made while a transaction is
// already open runs fn directly; commit and rollback belong to the outermost
// scope only.
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrTransaction, err)
	}

	ctx = context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				m.logger.Error("rollback after panic failed", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrTransaction, err)
	}
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q resolves the statement target: the open transaction when one is in the
// context, the pool otherwise.
func q(ctx context.Context, db *sql.DB) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}
