package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWithTransactionJoinsOpenScope(t *testing.T) {
	m := NewTxManager(nil, testLogger())
	tx := new(sql.Tx)
	ctx := context.WithValue(context.Background(), txKey{}, tx)

	t.Run("nested call runs fn without opening a second transaction", func(t *testing.T) {
		called := false
		err := m.WithTransaction(ctx, func(inner context.Context) error {
			called = true
			if txFromContext(inner) != tx {
				t.Error("inner context lost the open transaction")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !called {
			t.Fatal("fn was not invoked")
		}
	})

	t.Run("nested error propagates unwrapped", func(t *testing.T) {
		want := errors.New("boom")
		err := m.WithTransaction(ctx, func(context.Context) error { return want })
		if !errors.Is(err, want) {
			t.Errorf("err = %v, want %v", err, want)
		}
	})
}

func TestQuerierResolution(t *testing.T) {
	db := new(sql.DB)
	tx := new(sql.Tx)

	t.Run("plain context resolves to the pool", func(t *testing.T) {
		if got := q(context.Background(), db); got != querier(db) {
			t.Errorf("q = %T, want *sql.DB", got)
		}
	})

	t.Run("open transaction wins over the pool", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), txKey{}, tx)
		if got := q(ctx, db); got != querier(tx) {
			t.Errorf("q = %T, want *sql.Tx", got)
		}
	})
}
