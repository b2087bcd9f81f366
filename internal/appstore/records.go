package appstore

import (
	"database/sql"
	"time"
)

// Data types written to reduced data and their extras.
const (
	DataTypePhotometry   = "photometry"
	DataTypeSpectroscopy = "spectroscopy"
)

// Target is a row of the application target table. ID equals the legacy
// target id.
type Target struct {
	ID       int64     `db:"id"`
	Name     string    `db:"name"`
	Type     string    `db:"type"`
	RA       float64   `db:"ra"`
	Dec      float64   `db:"dec"`
	Epoch    float64   `db:"epoch"`
	Created  time.Time `db:"created"`
	Modified time.Time `db:"modified"`
}

// TargetName is an alias of a target, unique per (TargetID, Name). ID comes
// from the application's own sequence.
type TargetName struct {
	ID       int64     `db:"id"`
	TargetID int64     `db:"target_id"`
	Name     string    `db:"name"`
	Created  time.Time `db:"created"`
	Modified time.Time `db:"modified"`
}

// TargetNameLink records which (TargetID, Name) pair a legacy target name
// was last mirrored to, so updates and deletes can find it once the legacy
// row has changed or gone.
type TargetNameLink struct {
	LegacyID int64  `db:"legacy_id"`
	TargetID int64  `db:"target_id"`
	Name     string `db:"name"`
}

// TargetExtra is a key/value attribute of a target, unique per (TargetID, Key).
type TargetExtra struct {
	ID         int64           `db:"id"`
	TargetID   int64           `db:"target_id"`
	Key        string          `db:"key"`
	Value      string          `db:"value"`
	FloatValue sql.NullFloat64 `db:"float_value"`
}

// ReducedDatum is one photometric or spectroscopic data point. Value is a JSON
// document carrying the legacy row id under "snex_id".
type ReducedDatum struct {
	ID             int64     `db:"id"`
	TargetID       int64     `db:"target_id"`
	DataType       string    `db:"data_type"`
	Timestamp      time.Time `db:"timestamp"`
	Value          string    `db:"value"`
	SourceName     string    `db:"source_name"`
	SourceLocation string    `db:"source_location"`
}

// ReducedDatumExtra holds auxiliary metadata for a reduced datum. Value is a
// JSON document carrying "snex_id".
type ReducedDatumExtra struct {
	ID       int64  `db:"id"`
	TargetID int64  `db:"target_id"`
	DataType string `db:"data_type"`
	Key      string `db:"key"`
	Value    string `db:"value"`
}

// Grant is a per-object view permission for a group.
type Grant struct {
	ID            int64  `db:"id"`
	ObjectPK      string `db:"object_pk"`
	ContentTypeID int64  `db:"content_type_id"`
	GroupID       int64  `db:"group_id"`
	PermissionID  int64  `db:"permission_id"`
}
