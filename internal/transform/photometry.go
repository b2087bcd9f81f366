package transform

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/snexsync/internal/appstore"
	"github.com/roach88/snexsync/internal/legacy"
)

// SentinelMagnitude marks a photometry row with no measurement.
const SentinelMagnitude = 9999

// Legacy filetype and difftype codes.
const (
	fileTypeDirect     = 1
	fileTypeDifference = 3

	diffTypeHotpants = 0
	diffTypePyZOGY   = 1
)

// PhotometryKind classifies a legacy photometry row.
type PhotometryKind int

const (
	// Unmirrored rows produce no application record.
	Unmirrored PhotometryKind = iota
	Direct
	Hotpants
	PyZOGY
)

func (k PhotometryKind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Hotpants:
		return "Hotpants"
	case PyZOGY:
		return "PyZOGY"
	default:
		return "unmirrored"
	}
}

// ClassifyPhotometry derives the row kind from its filetype and difftype.
func ClassifyPhotometry(row legacy.Photometry) PhotometryKind {
	if !row.FileType.Valid {
		return Unmirrored
	}
	switch row.FileType.Int64 {
	case fileTypeDirect:
		return Direct
	case fileTypeDifference:
		if !row.DiffType.Valid {
			return Unmirrored
		}
		switch row.DiffType.Int64 {
		case diffTypeHotpants:
			return Hotpants
		case diffTypePyZOGY:
			return PyZOGY
		}
	}
	return Unmirrored
}

// PhotometryValue is the JSON value of a photometric reduced datum.
type PhotometryValue struct {
	Magnitude            *float64 `json:"magnitude,omitempty"`
	Filter               *string  `json:"filter,omitempty"`
	Error                *float64 `json:"error,omitempty"`
	SnexID               int64    `json:"snex_id"`
	BackgroundSubtracted *bool    `json:"background_subtracted,omitempty"`
	SubtractionAlgorithm string   `json:"subtraction_algorithm,omitempty"`
	TemplateSource       string   `json:"template_source,omitempty"`
	Telescope            string   `json:"telescope,omitempty"`
	Instrument           string   `json:"instrument,omitempty"`
}

// Excluded reports whether data owned by a target with the given
// classification must not be mirrored.
func Excluded(classificationID sql.NullInt64, opts Options) bool {
	opts = opts.withDefaults()
	return classificationID.Valid && classificationID.Int64 == opts.StandardClassificationID
}

// Photometry maps a legacy photometry row. ok is false when the row's kind is
// not mirrored.
func Photometry(row legacy.Photometry, opts Options) (rec appstore.ReducedDatum, ok bool, err error) {
	opts = opts.withDefaults()
	kind := ClassifyPhotometry(row)
	if kind == Unmirrored {
		return appstore.ReducedDatum{}, false, nil
	}

	ts, err := ObservationTime(row.DateObs, row.UT)
	if err != nil {
		return appstore.ReducedDatum{}, false, fmt.Errorf("photometry %d: %w", row.ID, err)
	}

	value := PhotometryValue{SnexID: row.ID}
	if !row.Mag.Valid || row.Mag.Float64 != SentinelMagnitude {
		value = photometryValue(row, kind, opts)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return appstore.ReducedDatum{}, false, fmt.Errorf("photometry %d: encode value: %w", row.ID, err)
	}

	return appstore.ReducedDatum{
		TargetID:  row.TargetID,
		DataType:  appstore.DataTypePhotometry,
		Timestamp: ts,
		Value:     string(raw),
	}, true, nil
}

func photometryValue(row legacy.Photometry, kind PhotometryKind, opts Options) PhotometryValue {
	v := PhotometryValue{
		Magnitude:  nullFloat(row.Mag),
		Filter:     nullString(row.Filter),
		Error:      nullFloat(row.DMag),
		SnexID:     row.ID,
		Telescope:  row.Telescope.String,
		Instrument: row.Instrument.String,
	}
	subtracted := kind != Direct
	v.BackgroundSubtracted = &subtracted
	if subtracted {
		v.SubtractionAlgorithm = kind.String()
		v.TemplateSource = opts.DefaultTemplateSource
		if strings.Contains(row.Filename.String, "SDSS") {
			v.TemplateSource = "SDSS"
		}
	}
	return v
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
