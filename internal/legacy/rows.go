package legacy

import "database/sql"

// Action is the kind of mutation a change-log entry records.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actions lists every action in processing order. Deletes run first so a
// stale delete never clobbers a row re-inserted under the same id in the
// same run.
var Actions = []Action{ActionDelete, ActionInsert, ActionUpdate}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Entry is one pending change-log row written by the legacy store's triggers.
// Deleting it is the only record that its effect has been applied.
type Entry struct {
	ID        int64        `db:"id"`
	Table     string       `db:"table_name"`
	Action    Action       `db:"action"`
	RowID     int64        `db:"row_id"`
	CreatedAt sql.NullTime `db:"created_at"`
}

// Target is a row of the legacy targets table.
type Target struct {
	ID               int64           `db:"id"`
	RA               float64         `db:"ra0"`
	Dec              float64         `db:"dec0"`
	Redshift         sql.NullFloat64 `db:"redshift"`
	ClassificationID sql.NullInt64   `db:"classificationid"`
	GroupCode        sql.NullInt64   `db:"groupidcode"`
	Modified         sql.NullTime    `db:"lastmodified"`
	Created          sql.NullTime    `db:"datecreated"`
}

// TargetName is a row of the legacy targetnames table.
type TargetName struct {
	ID       int64  `db:"id"`
	TargetID int64  `db:"targetid"`
	Name     string `db:"name"`
}

// Classification is a row of the legacy classifications table.
type Classification struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Photometry is a row of the legacy photometry table.
type Photometry struct {
	ID         int64           `db:"id"`
	TargetID   int64           `db:"targetid"`
	DateObs    sql.NullString  `db:"dateobs"`
	UT         sql.NullString  `db:"ut"`
	Mag        sql.NullFloat64 `db:"mag"`
	DMag       sql.NullFloat64 `db:"dmag"`
	Filter     sql.NullString  `db:"filter"`
	FileType   sql.NullInt64   `db:"filetype"`
	DiffType   sql.NullInt64   `db:"difftype"`
	Filename   sql.NullString  `db:"filename"`
	Telescope  sql.NullString  `db:"telescope"`
	Instrument sql.NullString  `db:"instrument"`
	GroupCode  sql.NullInt64   `db:"groupidcode"`
}

// Spectrum is a row of the legacy spectra table. The flux series itself lives
// in a sidecar file next to the reduced FITS file.
type Spectrum struct {
	ID         int64           `db:"id"`
	TargetID   int64           `db:"targetid"`
	DateObs    sql.NullString  `db:"dateobs"`
	UT         sql.NullString  `db:"ut"`
	Filepath   sql.NullString  `db:"filepath"`
	Filename   sql.NullString  `db:"filename"`
	GroupCode  sql.NullInt64   `db:"groupidcode"`
	Telescope  sql.NullString  `db:"telescope"`
	Instrument sql.NullString  `db:"instrument"`
	Exptime    sql.NullFloat64 `db:"exptime"`
	Slit       sql.NullString  `db:"slit"`
	Airmass    sql.NullFloat64 `db:"airmass"`
	Reducer    sql.NullString  `db:"reducer"`
}

// Group is a row of the legacy groups table. IDCode is a single bit.
type Group struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	IDCode int64  `db:"idcode"`
}

// BacklogCount is the number of pending entries for one (table, action) pair.
type BacklogCount struct {
	Table    string `db:"table_name" json:"table"`
	Action   Action `db:"action" json:"action"`
	Count    int64  `db:"n" json:"count"`
	OldestID int64  `db:"oldest_id" json:"oldest_id"`
}
