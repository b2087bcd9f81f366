// Package sqldb opens the relational stores snexsync reads from and writes to.
//
// Both stores are reached through database/sql with one of three drivers:
//   - mysql: the legacy SNEx1 store in production
//   - pgx: the SNEx2 application store in production
//   - sqlite3: local runs and tests, for either side
//
// A Dialect carries the per-driver differences the rest of the code cares
// about: placeholder style, identifier quoting, JSON key extraction and
// INSERT ... RETURNING support.
package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // application store
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Options controls how a connection is established.
type Options struct {
	// Retries is the number of additional ping attempts after the first one.
	Retries uint64

	// MaxInterval caps the exponential backoff between attempts.
	MaxInterval time.Duration
}

// DriverDSN returns dsn with the settings snexsync depends on forced. For
// mysql that is parseTime in UTC, without which DATETIME columns scan as
// []byte. Other DSNs are returned unchanged.
func DriverDSN(driver, dsn string) (string, error) {
	if driver != DriverMySQL {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Open connects to driver/dsn and pings it, retrying with exponential
// backoff. The returned DB is ready for use; callers own Close.
func Open(ctx context.Context, driver, dsn string, opts Options) (*sqlx.DB, error) {
	if _, err := DialectFor(driver); err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("open %s: empty dsn", driver)
	}

	dsn, err := DriverDSN(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	maxInterval := opts.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 10 * time.Second
	}
	eb := backoff.NewExponentialBackOff()
	eb.MaxInterval = maxInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, opts.Retries), ctx)

	ping := func() error {
		return db.PingContext(ctx)
	}
	if err := backoff.Retry(ping, policy); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	return db, nil
}
