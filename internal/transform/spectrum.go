package transform

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/roach88/snexsync/internal/appstore"
	"github.com/roach88/snexsync/internal/legacy"
)

// SpectrumExtrasKey is the reduced-datum-extra key holding spectrum metadata.
const SpectrumExtrasKey = "spec_extras"

// SpectrumPoint is one sample of a flux series. Index is the position of the
// sample among the data lines of the sidecar, so dropped samples leave gaps.
type SpectrumPoint struct {
	Index      int
	Wavelength float64
	Flux       float64
}

// SidecarPath returns the location of the flux series of a legacy spectrum.
func SidecarPath(row legacy.Spectrum, opts Options) (string, error) {
	opts = opts.withDefaults()
	name := strings.TrimSpace(row.Filename.String)
	if name == "" {
		return "", malformed("spectrum %d has no filename", row.ID)
	}
	name = strings.TrimSuffix(name, ".fits") + opts.SpectrumSuffix
	return path.Join(strings.TrimSpace(row.Filepath.String), name), nil
}

// ParseSidecar reads "wavelength flux" lines. Blank lines and lines starting
// with '#' are ignored; samples whose flux is NaN are dropped.
func ParseSidecar(r io.Reader) ([]SpectrumPoint, error) {
	var points []SpectrumPoint
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo, index := 0, 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, malformed("sidecar line %d: want wavelength and flux, got %q", lineNo, line)
		}
		i := index
		index++

		if strings.EqualFold(fields[1], "nan") {
			continue
		}
		wavelength, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || math.IsNaN(wavelength) || math.IsInf(wavelength, 0) {
			return nil, malformed("sidecar line %d: wavelength %q", lineNo, fields[0])
		}
		flux, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || math.IsInf(flux, 0) {
			return nil, malformed("sidecar line %d: flux %q", lineNo, fields[1])
		}
		if math.IsNaN(flux) {
			continue
		}
		points = append(points, SpectrumPoint{Index: i, Wavelength: wavelength, Flux: flux})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	return points, nil
}

// SpectrumValue is the JSON value of a spectroscopic reduced datum: one
// member per sample keyed by its index, plus "snex_id".
type SpectrumValue struct {
	SnexID int64
	Points []SpectrumPoint
}

type spectrumSample struct {
	Wavelength float64 `json:"wavelength"`
	Flux       float64 `json:"flux"`
}

func (v SpectrumValue) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(v.Points)+1)
	for _, p := range v.Points {
		m[strconv.Itoa(p.Index)] = spectrumSample{Wavelength: p.Wavelength, Flux: p.Flux}
	}
	m["snex_id"] = v.SnexID
	return json.Marshal(m)
}

// Spectrum maps a legacy spectrum and its parsed flux series.
func Spectrum(row legacy.Spectrum, points []SpectrumPoint) (appstore.ReducedDatum, error) {
	ts, err := ObservationTime(row.DateObs, row.UT)
	if err != nil {
		return appstore.ReducedDatum{}, fmt.Errorf("spectrum %d: %w", row.ID, err)
	}
	raw, err := json.Marshal(SpectrumValue{SnexID: row.ID, Points: points})
	if err != nil {
		return appstore.ReducedDatum{}, fmt.Errorf("spectrum %d: encode value: %w", row.ID, err)
	}
	return appstore.ReducedDatum{
		TargetID:  row.TargetID,
		DataType:  appstore.DataTypeSpectroscopy,
		Timestamp: ts,
		Value:     string(raw),
	}, nil
}

// SpectrumExtrasValue is the observation metadata of a spectrum.
type SpectrumExtrasValue struct {
	SnexID     int64    `json:"snex_id"`
	Telescope  string   `json:"telescope,omitempty"`
	Instrument string   `json:"instrument,omitempty"`
	Exptime    *float64 `json:"exptime,omitempty"`
	Slit       string   `json:"slit,omitempty"`
	Airmass    *float64 `json:"airmass,omitempty"`
	Reducer    string   `json:"reducer,omitempty"`
}

// SpectrumExtras maps the observation metadata of a legacy spectrum.
func SpectrumExtras(row legacy.Spectrum) (appstore.ReducedDatumExtra, error) {
	raw, err := json.Marshal(SpectrumExtrasValue{
		SnexID:     row.ID,
		Telescope:  row.Telescope.String,
		Instrument: row.Instrument.String,
		Exptime:    nullFloat(row.Exptime),
		Slit:       row.Slit.String,
		Airmass:    nullFloat(row.Airmass),
		Reducer:    row.Reducer.String,
	})
	if err != nil {
		return appstore.ReducedDatumExtra{}, fmt.Errorf("spectrum %d: encode extras: %w", row.ID, err)
	}
	return appstore.ReducedDatumExtra{
		TargetID: row.TargetID,
		DataType: appstore.DataTypeSpectroscopy,
		Key:      SpectrumExtrasKey,
		Value:    string(raw),
	}, nil
}
