// Package appstore writes the SNEx2/TOM application store.
//
// Every mirrored record is located by a natural key derived from the legacy
// row: targets share the legacy primary key, target names are keyed by
// (target_id, name) and tracked in a link table, extras are keyed by
// (target_id, key) and reduced data carry a snex_id inside their JSON value.
// Writes happen inside a Tx; callers commit one Tx per change-log entry.
package appstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/roach88/snexsync/internal/schema"
	"github.com/roach88/snexsync/internal/sqldb"
)

// Store is a handle on the application store.
type Store struct {
	db     *sqlx.DB
	d      sqldb.Dialect
	tables schema.Tables
}

// New wraps an open connection. tables must contain every app logical table.
func New(db *sqlx.DB, d sqldb.Dialect, tables schema.Tables) *Store {
	return &Store{db: db, d: d, tables: tables}
}

// DB returns the underlying connection.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Begin starts a destination transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin app transaction: %w", err)
	}
	return &Tx{tx: tx, d: s.d, tables: s.tables}, nil
}

// Tx is one destination transaction.
type Tx struct {
	tx     *sqlx.Tx
	d      sqldb.Dialect
	tables schema.Tables
	done   bool
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit app transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. It is a no-op after Commit, so it can be
// deferred unconditionally.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback app transaction: %w", err)
	}
	return nil
}

func (t *Tx) table(logical string) string {
	return t.d.Quote(t.tables.Name(logical))
}

func (t *Tx) col(name string) string {
	return t.d.Quote(name)
}

func (t *Tx) selectFrom(logical string) sq.SelectBuilder {
	return t.d.Builder().
		Select(t.d.Columns(t.tables[logical].Columns...)...).
		From(t.table(logical))
}

func (t *Tx) getOne(ctx context.Context, dest any, q sq.SelectBuilder) (bool, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	if err := t.tx.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (t *Tx) exists(ctx context.Context, logical string, where sq.Sqlizer) (bool, error) {
	query, args, err := t.d.Builder().
		Select("1").
		From(t.table(logical)).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	var one int
	if err := t.tx.GetContext(ctx, &one, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (t *Tx) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// insertID runs an insert and returns the generated id.
func (t *Tx) insertID(ctx context.Context, b sq.InsertBuilder) (int64, error) {
	if t.d.SupportsReturning() {
		query, args, err := b.Suffix("RETURNING " + t.col("id")).ToSql()
		if err != nil {
			return 0, fmt.Errorf("build insert: %w", err)
		}
		var id int64
		if err := t.tx.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// snexID matches reduced-data rows whose JSON value carries the given snex_id.
func (t *Tx) snexID(id int64) sq.Sqlizer {
	return sq.Expr(t.d.JSONInt("value", "snex_id")+" = ?", id)
}
