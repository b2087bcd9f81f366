package transform

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/snexsync/internal/appstore"
	"github.com/roach88/snexsync/internal/legacy"
)

// Constant target attributes asserted on every sync.
const (
	TargetType  = "SIDEREAL"
	TargetEpoch = 2000.0
)

// Target extra keys.
const (
	ExtraRedshift       = "redshift"
	ExtraClassification = "classification"
)

// FallbackName is the name given to a target that has no legacy name yet.
func FallbackName(id int64) string {
	return "snex1-" + strconv.FormatInt(id, 10)
}

// Target maps a legacy target. name is used on insert only; now stands in for
// a missing modification time.
func Target(row legacy.Target, name string, now time.Time) appstore.Target {
	modified := now.UTC()
	if row.Modified.Valid {
		modified = row.Modified.Time.UTC()
	}
	created := modified
	if row.Created.Valid {
		created = row.Created.Time.UTC()
	}
	if name = NormalizeName(name); name == "" {
		name = FallbackName(row.ID)
	}
	return appstore.Target{
		ID:       row.ID,
		Name:     name,
		Type:     TargetType,
		RA:       row.RA,
		Dec:      row.Dec,
		Epoch:    TargetEpoch,
		Created:  created,
		Modified: modified,
	}
}

// NormalizeName trims and NFC-normalizes a target name so names typed with
// different Unicode compositions compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// TargetName maps a legacy target name. The destination id is left zero;
// the application store assigns it.
func TargetName(row legacy.TargetName, now time.Time) (appstore.TargetName, error) {
	name := NormalizeName(row.Name)
	if name == "" {
		return appstore.TargetName{}, malformed("target name %d is empty", row.ID)
	}
	return appstore.TargetName{
		TargetID: row.TargetID,
		Name:     name,
		Created:  now.UTC(),
		Modified: now.UTC(),
	}, nil
}

// Redshift maps the redshift of a legacy target. ok is false when the legacy
// value is null.
func Redshift(row legacy.Target) (appstore.TargetExtra, bool) {
	if !row.Redshift.Valid {
		return appstore.TargetExtra{}, false
	}
	z := row.Redshift.Float64
	return appstore.TargetExtra{
		TargetID:   row.ID,
		Key:        ExtraRedshift,
		Value:      strconv.FormatFloat(z, 'g', -1, 64),
		FloatValue: sql.NullFloat64{Float64: z, Valid: true},
	}, true
}

// Classification maps a resolved classification name. ok is false when the
// target has no classification.
func Classification(targetID int64, name string) (appstore.TargetExtra, bool) {
	if name == "" {
		return appstore.TargetExtra{}, false
	}
	return appstore.TargetExtra{
		TargetID: targetID,
		Key:      ExtraClassification,
		Value:    name,
	}, true
}
