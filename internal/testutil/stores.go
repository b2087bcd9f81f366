package testutil

import (
	"context"
	_ "embed"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/snexsync/internal/sqldb"
)

//go:embed legacy_schema.sql
var legacySchemaSQL string

//go:embed app_schema.sql
var appSchemaSQL string

// Content type and permission ids seeded by NewAppDB.
const (
	TargetContentTypeID       int64 = 12
	ReducedDatumContentTypeID int64 = 31
	ViewTargetPermissionID    int64 = 47
	ViewDatumPermissionID     int64 = 88
)

// NewLegacyDB creates a SQLite database with the legacy schema in a temp dir.
func NewLegacyDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return CreateLegacyDB(t, filepath.Join(t.TempDir(), "legacy.db"))
}

// CreateLegacyDB creates a legacy SQLite database at path.
func CreateLegacyDB(t *testing.T, path string) *sqlx.DB {
	t.Helper()
	return newDB(t, path, legacySchemaSQL)
}

// NewAppDB creates a SQLite database with the application schema, seeded
// with the content types and view permissions grants refer to.
func NewAppDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return CreateAppDB(t, filepath.Join(t.TempDir(), "app.db"))
}

// CreateAppDB creates an application SQLite database at path.
func CreateAppDB(t *testing.T, path string) *sqlx.DB {
	t.Helper()
	return newDB(t, path, appSchemaSQL)
}

func newDB(t *testing.T, path, ddl string) *sqlx.DB {
	t.Helper()
	db, err := sqldb.Open(context.Background(), sqldb.DriverSQLite, path, sqldb.Options{})
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("apply schema to %s: %v", path, err)
	}
	return db
}

// Exec runs a statement and fails the test on error.
func Exec(t *testing.T, db *sqlx.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// Count returns SELECT COUNT(*) for the given FROM/WHERE tail.
func Count(t *testing.T, db *sqlx.DB, tail string, args ...any) int {
	t.Helper()
	var n int
	if err := db.Get(&n, "SELECT COUNT(*) FROM "+tail, args...); err != nil {
		t.Fatalf("count %q: %v", tail, err)
	}
	return n
}

// LogChange appends a change-log entry and returns its id.
func LogChange(t *testing.T, db *sqlx.DB, table, action string, rowID int64) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO db_changes (table_name, action, row_id, created_at) VALUES (?, ?, ?, ?)`,
		table, action, rowID, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("log change: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("log change id: %v", err)
	}
	return id
}

// LogChangeWithID appends a change-log entry with an explicit id.
func LogChangeWithID(t *testing.T, db *sqlx.DB, id int64, table, action string, rowID int64) {
	t.Helper()
	Exec(t, db, `INSERT INTO db_changes (id, table_name, action, row_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, table, action, rowID, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
}

// SeedGroups inserts legacy groups and their application counterparts.
// Keys are bit codes, values are group names.
func SeedGroups(t *testing.T, legacy, app *sqlx.DB, groups map[int64]string) {
	t.Helper()
	for code, name := range groups {
		Exec(t, legacy, `INSERT INTO groups (name, idcode) VALUES (?, ?)`, name, code)
		Exec(t, app, `INSERT INTO auth_group (name) VALUES (?)`, name)
	}
}

// SeedTarget inserts a legacy target.
func SeedTarget(t *testing.T, legacy *sqlx.DB, id int64, ra, dec float64, classID any, groupCode any) {
	t.Helper()
	Exec(t, legacy, `INSERT INTO targets (id, ra0, dec0, classificationid, groupidcode, lastmodified, datecreated)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, ra, dec, classID, groupCode,
		time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
}

// SeedAppTarget inserts an application target directly.
func SeedAppTarget(t *testing.T, app *sqlx.DB, id int64, name string) {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	Exec(t, app, `INSERT INTO tom_targets_target (id, name, type, ra, dec, epoch, created, modified)
		VALUES (?, ?, 'SIDEREAL', 0, 0, 2000, ?, ?)`, id, name, now, now)
}
