package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"

	"github.com/roach88/snexsync/internal/legacy"
	"github.com/roach88/snexsync/internal/sidecar"
	"github.com/roach88/snexsync/internal/transform"
)

// ErrorClass categorizes a failure while applying one change-log entry.
// The class decides whether the run continues.
type ErrorClass string

const (
	// ClassConnectivity means a store could not be reached. The run aborts and
	// every unretired entry stays pending.
	ClassConnectivity ErrorClass = "CONNECTIVITY"

	// ClassMalformed means the legacy data cannot be mapped. The entry is
	// deferred and the pass continues.
	ClassMalformed ErrorClass = "MALFORMED"

	// ClassUnexpected covers everything else. The entry is deferred.
	ClassUnexpected ErrorClass = "UNEXPECTED"
)

// EntryError is a failure tied to one change-log entry.
type EntryError struct {
	Class  ErrorClass
	Entity Entity
	Entry  legacy.Entry
	Err    error
}

// Error implements the error interface.
func (e *EntryError) Error() string {
	return fmt.Sprintf("%s: %s %s entry %d (%s row %d): %v",
		e.Class, e.Entity, e.Entry.Action, e.Entry.ID, e.Entry.Table, e.Entry.RowID, e.Err)
}

// Unwrap returns the underlying error.
func (e *EntryError) Unwrap() error {
	return e.Err
}

// Classify maps an error to its class.
func Classify(err error) ErrorClass {
	var ee *EntryError
	if errors.As(err, &ee) {
		return ee.Class
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, mysql.ErrInvalidConn):
		return ClassConnectivity
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ClassConnectivity
	}
	if errors.Is(err, transform.ErrMalformed) || errors.Is(err, sidecar.ErrNotFound) {
		return ClassMalformed
	}
	return ClassUnexpected
}

// IsConnectivity reports whether err aborts a run, that is whether Classify
// puts it in ClassConnectivity. Wrapped errors are classified by their cause.
func IsConnectivity(err error) bool {
	return err != nil && Classify(err) == ClassConnectivity
}

// IsMalformed reports whether err stems from unmappable legacy data.
func IsMalformed(err error) bool {
	return err != nil && Classify(err) == ClassMalformed
}

func newEntryError(entity Entity, entry legacy.Entry, err error) *EntryError {
	return &EntryError{Class: Classify(err), Entity: entity, Entry: entry, Err: err}
}
