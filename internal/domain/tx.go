package domain

import "context"

// TransactionManager is the atomic boundary around one or more repository
// writes. WithTransaction begins a transaction, runs fn, commits on normal
// return, and rolls back and re-raises on error. A nested call on an already
// open transaction is a no-op that defers commit/rollback to the outermost
// scope. Implementations must not perform cache I/O inside fn's transaction;
// callers invalidate only after WithTransaction returns success.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
