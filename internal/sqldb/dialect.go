package sqldb

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Supported database/sql driver names.
const (
	DriverMySQL  = "mysql"
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite3"
)

// Dialect describes the SQL differences between supported drivers.
type Dialect struct {
	Driver string

	placeholder sq.PlaceholderFormat
	quote       string
}

// DialectFor returns the dialect for a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverMySQL:
		return Dialect{Driver: driver, placeholder: sq.Question, quote: "`"}, nil
	case DriverPgx:
		return Dialect{Driver: driver, placeholder: sq.Dollar, quote: `"`}, nil
	case DriverSQLite:
		// A double-quoted unknown column is read back as a string literal.
		return Dialect{Driver: driver, placeholder: sq.Question, quote: "`"}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported driver %q (want %s, %s or %s)", driver, DriverMySQL, DriverPgx, DriverSQLite)
	}
}

// MustDialect is DialectFor for driver names known at compile time.
func MustDialect(driver string) Dialect {
	d, err := DialectFor(driver)
	if err != nil {
		panic(err)
	}
	return d
}

// Builder returns a squirrel statement builder using the dialect's placeholders.
func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.placeholder)
}

// Quote quotes a single identifier.
func (d Dialect) Quote(ident string) string {
	return d.quote + strings.ReplaceAll(ident, d.quote, d.quote+d.quote) + d.quote
}

// Columns quotes every identifier in cols.
func (d Dialect) Columns(cols ...string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.Quote(c)
	}
	return out
}

// JSONInt returns an expression extracting key from the JSON document in
// column col as an integer. key must be a plain identifier.
func (d Dialect) JSONInt(col, key string) string {
	switch d.Driver {
	case DriverPgx:
		return fmt.Sprintf("CAST((%s::jsonb ->> '%s') AS BIGINT)", d.Quote(col), key)
	case DriverMySQL:
		return fmt.Sprintf("CAST(JSON_EXTRACT(%s, '$.%s') AS SIGNED)", d.Quote(col), key)
	default:
		return fmt.Sprintf("CAST(json_extract(%s, '$.%s') AS INTEGER)", d.Quote(col), key)
	}
}

// SupportsReturning reports whether INSERT ... RETURNING is available.
func (d Dialect) SupportsReturning() bool {
	return d.Driver != DriverMySQL
}
