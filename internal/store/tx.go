package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TxOptions selects transaction isolation.
type TxOptions struct {
	// Serializable requests SERIALIZABLE isolation instead of READ COMMITTED.
	// SQLite is always serializable.
	Serializable bool
}

// Tx is a unit of work against the store. All writes happen through a Tx.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise, including on context cancellation.
// fn must not use the Store directly: SQLite has a single connection.
func (s *Store) WithTx(ctx context.Context, opts TxOptions, fn func(*Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, s.dialect.txOptions(opts))
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{tx: sqlTx, dialect: s.dialect}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (t *Tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}

// insertReturningID runs an INSERT ... ON CONFLICT DO NOTHING RETURNING id.
// When the insert is suppressed by a conflict, the existing row's id is
// selected with lookup and inserted is false.
func (t *Tx) insertReturningID(ctx context.Context, insert string, insertArgs []any, lookup string, lookupArgs []any) (id int64, inserted bool, err error) {
	err = t.queryRow(ctx, insert, insertArgs...).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}

	if err := t.queryRow(ctx, lookup, lookupArgs...).Scan(&id); err != nil {
		return 0, false, err
	}
	return id, false, nil
}
