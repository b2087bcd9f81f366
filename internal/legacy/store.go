// Package legacy reads the SNEx1 operations store.
//
// The legacy store is authoritative for targets, photometry, spectra and
// group-bitmask access control. Its triggers append one row per mutation to a
// change-log table; this package reads that log, materializes the rows it
// refers to and retires entries once their effect has been applied elsewhere.
//
// Nothing here writes to legacy tables other than the change log.
package legacy

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

// Store provides read access to the legacy tables and read/delete access to
// the change log.
type Store struct {
	db        *sqlx.DB
	d         sqldb.Dialect
	tables    schema.Tables
	batchSize uint64
}

// Options tunes a Store.
type Options struct {
	// BatchSize caps the entries Pending returns per call. Zero means no cap.
	BatchSize uint64
}

// New wraps an open connection. tables must contain every legacy logical table.
func New(db *sqlx.DB, d sqldb.Dialect, tables schema.Tables, opts Options) *Store {
	return &Store{db: db, d: d, tables: tables, batchSize: opts.BatchSize}
}

// DB returns the underlying connection.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Tables returns the declared legacy tables.
func (s *Store) Tables() schema.Tables {
	return s.tables
}

// selectFrom starts a SELECT of every declared column of a logical table.
func (s *Store) selectFrom(logical string) sq.SelectBuilder {
	tbl := s.tables[logical]
	return s.d.Builder().
		Select(s.d.Columns(tbl.Columns...)...).
		From(s.d.Quote(tbl.Name))
}

// getOne runs q and scans a single row into dest. A missing row is reported
// as found=false, not as an error.
func (s *Store) getOne(ctx context.Context, dest any, q sq.SelectBuilder) (bool, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	if err := s.db.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
