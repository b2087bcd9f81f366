package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_Advance(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now())

	c.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), c.Now())
}

func TestFixedRunIDs(t *testing.T) {
	assert.Equal(t, "run-1", NewFixedRunIDs("run-1").Generate())
	assert.Equal(t, "test-run", NewFixedRunIDs("").Generate())
}

func TestStores_SchemaApplies(t *testing.T) {
	legacy := NewLegacyDB(t)
	app := NewAppDB(t)

	id := LogChange(t, legacy, "photlco", "insert", 42)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, 1, Count(t, legacy, "db_changes"))
	assert.Equal(t, 2, Count(t, app, "django_content_type"))
	assert.Equal(t, 2, Count(t, app, "auth_permission"))
}
