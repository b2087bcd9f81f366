package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/snexsync/internal/legacy"
	"github.com/roach88/snexsync/internal/sidecar"
	"github.com/roach88/snexsync/internal/transform"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"canceled", context.Canceled, ClassConnectivity},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), ClassConnectivity},
		{"bad conn", driver.ErrBadConn, ClassConnectivity},
		{"conn done", sql.ErrConnDone, ClassConnectivity},
		{"mysql invalid conn", mysql.ErrInvalidConn, ClassConnectivity},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, ClassConnectivity},
		{"malformed", fmt.Errorf("photometry 3: %w", transform.ErrMalformed), ClassMalformed},
		{"sidecar missing", fmt.Errorf("%w: /x.ascii", sidecar.ErrNotFound), ClassMalformed},
		{"other", errors.New("UNIQUE constraint failed"), ClassUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestEntryError(t *testing.T) {
	entry := legacy.Entry{ID: 9, Table: "photlco", Action: legacy.ActionUpdate, RowID: 42}
	err := newEntryError(EntityPhotometry, entry, fmt.Errorf("wrap: %w", transform.ErrMalformed))

	assert.Equal(t, ClassMalformed, err.Class)
	assert.True(t, IsMalformed(err))
	assert.False(t, IsConnectivity(err))
	assert.ErrorIs(t, err, transform.ErrMalformed)
	assert.Equal(t, "MALFORMED: photometry update entry 9 (photlco row 42): wrap: "+transform.ErrMalformed.Error(), err.Error())

	wrapped := fmt.Errorf("pass: %w", newEntryError(EntityTarget, entry, context.Canceled))
	assert.True(t, IsConnectivity(wrapped))
	assert.False(t, IsConnectivity(nil))
}

func TestReport(t *testing.T) {
	r := newReport("r1", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	r.count(EntityPhotometry, legacy.ActionInsert, OutcomeApplied)
	r.count(EntityPhotometry, legacy.ActionInsert, OutcomeApplied)
	r.count(EntityPhotometry, legacy.ActionInsert, OutcomeGap)
	r.count(EntityTarget, legacy.ActionDelete, OutcomeSkipped)

	assert.Equal(t, 2, r.Count(EntityPhotometry, legacy.ActionInsert, OutcomeApplied))
	assert.Equal(t, 0, r.Count(EntitySpectroscopy, legacy.ActionInsert, OutcomeApplied))
	assert.Equal(t, 2, r.Total(OutcomeApplied))
	assert.Len(t, r.Passes, 2)
	assert.NoError(t, r.DeferredErr())

	r.deferEntry(newEntryError(EntityPhotometry, legacy.Entry{ID: 3}, errors.New("boom")))
	assert.Len(t, r.Deferred, 1)
	assert.Error(t, r.DeferredErr())

	r.Finished = r.Started.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, r.Duration())
}
