package sqldb

import (
	"context"
	"path/filepath"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor_Unsupported(t *testing.T) {
	_, err := DialectFor("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestDialect_Quote(t *testing.T) {
	assert.Equal(t, "`groups`", MustDialect(DriverMySQL).Quote("groups"))
	assert.Equal(t, `"key"`, MustDialect(DriverPgx).Quote("key"))
	assert.Equal(t, "`we``ird`", MustDialect(DriverSQLite).Quote("we`ird"))
}

func TestDialect_QuotedUnknownColumnFailsOnSQLite(t *testing.T) {
	db, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "q.db"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE g (id INTEGER PRIMARY KEY, code INTEGER)`)
	require.NoError(t, err)

	d := MustDialect(DriverSQLite)
	q, _, err := d.Builder().Select(d.Columns("id", "idcode")...).From(d.Quote("g")).ToSql()
	require.NoError(t, err)

	_, err = db.Exec(q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such column")
}

func TestDialect_Placeholders(t *testing.T) {
	q, args, err := MustDialect(DriverPgx).Builder().
		Select("id").From("t").Where(sq.Eq{"a": 1, "b": 2}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t WHERE a = $1 AND b = $2", q)
	assert.Equal(t, []any{1, 2}, args)

	q, _, err = MustDialect(DriverMySQL).Builder().
		Select("id").From("t").Where(sq.Eq{"a": 1}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t WHERE a = ?", q)
}

func TestDialect_JSONInt(t *testing.T) {
	assert.Equal(t, `CAST(("value"::jsonb ->> 'snex_id') AS BIGINT)`, MustDialect(DriverPgx).JSONInt("value", "snex_id"))
	assert.Equal(t, "CAST(JSON_EXTRACT(`value`, '$.snex_id') AS SIGNED)", MustDialect(DriverMySQL).JSONInt("value", "snex_id"))
	assert.Equal(t, "CAST(json_extract(`value`, '$.snex_id') AS INTEGER)", MustDialect(DriverSQLite).JSONInt("value", "snex_id"))
}

func TestDialect_JSONIntOnSQLite(t *testing.T) {
	db, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "j.db"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE d (id INTEGER PRIMARY KEY, value TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO d (value) VALUES ('{"snex_id": 42}'), ('{"snex_id": 7}')`)
	require.NoError(t, err)

	d := MustDialect(DriverSQLite)
	q, args, err := d.Builder().Select("id").From("d").Where(sq.Eq{d.JSONInt("value", "snex_id"): 7}).ToSql()
	require.NoError(t, err)

	var id int64
	require.NoError(t, db.Get(&id, q, args...))
	assert.Equal(t, int64(2), id)
}

func TestOpen_RejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), DriverPgx, "", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty dsn")
}

func TestSupportsReturning(t *testing.T) {
	assert.False(t, MustDialect(DriverMySQL).SupportsReturning())
	assert.True(t, MustDialect(DriverPgx).SupportsReturning())
	assert.True(t, MustDialect(DriverSQLite).SupportsReturning())
}
