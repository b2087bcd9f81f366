package transform

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snexsync/internal/legacy"
)

func str(s string) sql.NullString   { return sql.NullString{String: s, Valid: true} }
func num(f float64) sql.NullFloat64 { return sql.NullFloat64{Float64: f, Valid: true} }
func code(i int64) sql.NullInt64    { return sql.NullInt64{Int64: i, Valid: true} }

func assertGoldenJSON(t *testing.T, name, raw string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.Indent(&buf, []byte(raw), "", "  "))
	buf.WriteByte('\n')
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}

func scenarioRow() legacy.Photometry {
	return legacy.Photometry{
		ID:         42,
		TargetID:   7,
		DateObs:    str("2024-03-01"),
		UT:         str("04:05:06"),
		Mag:        num(18.5),
		DMag:       num(0.05),
		Filter:     str("V"),
		FileType:   code(1),
		Telescope:  str("ogg"),
		Instrument: str("sinistro"),
		GroupCode:  code(3),
	}
}

func TestPhotometry_Direct(t *testing.T) {
	rec, ok, err := Photometry(scenarioRow(), DefaultOptions())
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, int64(7), rec.TargetID)
	assert.Equal(t, "photometry", rec.DataType)
	assert.Equal(t, time.Date(2024, 3, 1, 4, 5, 6, 0, time.UTC), rec.Timestamp)
	assert.JSONEq(t, `{"magnitude":18.5,"filter":"V","error":0.05,"snex_id":42,
		"background_subtracted":false,"telescope":"ogg","instrument":"sinistro"}`, rec.Value)
	assertGoldenJSON(t, "photometry_direct", rec.Value)
}

func TestPhotometry_DifferenceImaging(t *testing.T) {
	row := legacy.Photometry{
		ID:       43,
		TargetID: 7,
		DateObs:  str("2024-03-02"),
		Mag:      num(19.25),
		DMag:     num(0.1),
		Filter:   str("r"),
		FileType: code(3),
		DiffType: code(0),
		Filename: str("tfn.SDSS.diff.fits"),
	}
	rec, ok, err := Photometry(row, DefaultOptions())
	require.NoError(t, err)
	require.True(t, ok)
	assertGoldenJSON(t, "photometry_hotpants_sdss", rec.Value)

	row.DiffType = code(1)
	row.Filename = str("tfn.diff.fits")
	rec, ok, err = Photometry(row, Options{DefaultTemplateSource: "PS1"})
	require.NoError(t, err)
	require.True(t, ok)

	var v PhotometryValue
	require.NoError(t, json.Unmarshal([]byte(rec.Value), &v))
	require.NotNil(t, v.BackgroundSubtracted)
	assert.True(t, *v.BackgroundSubtracted)
	assert.Equal(t, "PyZOGY", v.SubtractionAlgorithm)
	assert.Equal(t, "PS1", v.TemplateSource)
}

func TestClassifyPhotometry(t *testing.T) {
	tests := []struct {
		name     string
		fileType sql.NullInt64
		diffType sql.NullInt64
		want     PhotometryKind
	}{
		{"direct", code(1), sql.NullInt64{}, Direct},
		{"direct ignores difftype", code(1), code(1), Direct},
		{"hotpants", code(3), code(0), Hotpants},
		{"pyzogy", code(3), code(1), PyZOGY},
		{"difference without difftype", code(3), sql.NullInt64{}, Unmirrored},
		{"unknown difftype", code(3), code(2), Unmirrored},
		{"other filetype", code(2), code(0), Unmirrored},
		{"null filetype", sql.NullInt64{}, sql.NullInt64{}, Unmirrored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyPhotometry(legacy.Photometry{FileType: tt.fileType, DiffType: tt.diffType})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPhotometry_UnmirroredKind(t *testing.T) {
	row := scenarioRow()
	row.FileType = code(2)
	_, ok, err := Photometry(row, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPhotometry_Sentinel(t *testing.T) {
	row := scenarioRow()
	row.Mag = num(SentinelMagnitude)
	rec, ok, err := Photometry(row, DefaultOptions())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"snex_id":42}`, rec.Value)
}

func TestPhotometry_BadDate(t *testing.T) {
	row := scenarioRow()
	row.DateObs = str("yesterday")
	_, _, err := Photometry(row, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestExcluded(t *testing.T) {
	assert.True(t, Excluded(code(1), DefaultOptions()))
	assert.False(t, Excluded(code(2), DefaultOptions()))
	assert.False(t, Excluded(sql.NullInt64{}, DefaultOptions()))
	assert.True(t, Excluded(code(9), Options{StandardClassificationID: 9}))
}

func TestObservationTime(t *testing.T) {
	tests := []struct {
		name string
		date sql.NullString
		ut   sql.NullString
		want time.Time
	}{
		{"date and time", str("2024-03-01"), str("23:59:58"), time.Date(2024, 3, 1, 23, 59, 58, 0, time.UTC)},
		{"fractional seconds", str("2024-03-01"), str("01:02:03.5"), time.Date(2024, 3, 1, 1, 2, 3, 500000000, time.UTC)},
		{"missing time", str("2024-03-01"), sql.NullString{}, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"driver timestamp", str("2024-03-01T00:00:00Z"), str("10:00:00"), time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"datetime text", str("2024-03-01 00:00:00"), str("10:00:00"), time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ObservationTime(tt.date, tt.ut)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// parseTime=true hands the DATE column over as a time.Time.
	var scanned sql.NullString
	require.NoError(t, scanned.Scan(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	got, err := ObservationTime(scanned, str("10:00:00"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), got)

	_, err = ObservationTime(sql.NullString{}, str("10:00:00"))
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = ObservationTime(str("2024-03-01"), str("noon"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestTarget(t *testing.T) {
	now := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	modified := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)

	rec := Target(legacy.Target{
		ID: 7, RA: 10.5, Dec: -3.25,
		Modified: sql.NullTime{Time: modified, Valid: true},
	}, "  SN 2024abc ", now)
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "SN 2024abc", rec.Name)
	assert.Equal(t, TargetType, rec.Type)
	assert.Equal(t, TargetEpoch, rec.Epoch)
	assert.Equal(t, modified, rec.Modified)
	assert.Equal(t, modified, rec.Created)

	rec = Target(legacy.Target{ID: 8}, "", now)
	assert.Equal(t, "snex1-8", rec.Name)
	assert.Equal(t, now, rec.Modified)
	assert.Equal(t, now, rec.Created)
}

func TestTargetName_NormalizesUnicode(t *testing.T) {
	now := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	decomposed := "SN 2024Cafe\u0301"
	rec, err := TargetName(legacy.TargetName{ID: 3, TargetID: 7, Name: decomposed}, now)
	require.NoError(t, err)
	assert.Equal(t, "SN 2024Caf\u00e9", rec.Name)
	assert.Equal(t, int64(7), rec.TargetID)
	assert.Zero(t, rec.ID)

	_, err = TargetName(legacy.TargetName{ID: 4, TargetID: 7, Name: "  "}, now)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRedshiftAndClassification(t *testing.T) {
	extra, ok := Redshift(legacy.Target{ID: 7, Redshift: num(0.0123)})
	require.True(t, ok)
	assert.Equal(t, ExtraRedshift, extra.Key)
	assert.Equal(t, "0.0123", extra.Value)
	assert.Equal(t, 0.0123, extra.FloatValue.Float64)

	_, ok = Redshift(legacy.Target{ID: 7})
	assert.False(t, ok)

	extra, ok = Classification(7, "SN Ia")
	require.True(t, ok)
	assert.Equal(t, ExtraClassification, extra.Key)
	assert.Equal(t, "SN Ia", extra.Value)
	assert.False(t, extra.FloatValue.Valid)

	_, ok = Classification(7, "")
	assert.False(t, ok)
}

const sidecar = `# wavelength flux
3500.0 1.5e-16

3501.5 NaN
3503.0 2.25e-16
`

func TestParseSidecar_DropsNaN(t *testing.T) {
	points, err := ParseSidecar(strings.NewReader(sidecar))
	require.NoError(t, err)
	assert.Equal(t, []SpectrumPoint{
		{Index: 0, Wavelength: 3500, Flux: 1.5e-16},
		{Index: 2, Wavelength: 3503, Flux: 2.25e-16},
	}, points)
}

func TestParseSidecar_Malformed(t *testing.T) {
	for _, in := range []string{"3500.0\n", "abc 1.0\n", "3500 xyz\n", "3500 +Inf\n"} {
		_, err := ParseSidecar(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrMalformed, in)
	}
}

func TestSidecarPath(t *testing.T) {
	row := legacy.Spectrum{ID: 5, Filepath: str("/supernova/data/floyds/"), Filename: str("spec_2024.fits")}
	p, err := SidecarPath(row, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "/supernova/data/floyds/spec_2024.ascii", p)

	p, err = SidecarPath(row, Options{SpectrumSuffix: ".txt"})
	require.NoError(t, err)
	assert.Equal(t, "/supernova/data/floyds/spec_2024.txt", p)

	_, err = SidecarPath(legacy.Spectrum{ID: 6}, DefaultOptions())
	assert.ErrorIs(t, err, ErrMalformed)
}

func spectrumRow() legacy.Spectrum {
	return legacy.Spectrum{
		ID:         5,
		TargetID:   7,
		DateObs:    str("2024-03-03"),
		UT:         str("05:00:00"),
		Filepath:   str("/data/"),
		Filename:   str("x.fits"),
		Telescope:  str("ftn"),
		Instrument: str("floyds"),
		Exptime:    num(1800),
		Slit:       str("2.0"),
		Airmass:    num(1.21),
		Reducer:    str("auto"),
	}
}

func TestSpectrum(t *testing.T) {
	points, err := ParseSidecar(strings.NewReader(sidecar))
	require.NoError(t, err)

	rec, err := Spectrum(spectrumRow(), points)
	require.NoError(t, err)
	assert.Equal(t, "spectroscopy", rec.DataType)
	assert.Equal(t, time.Date(2024, 3, 3, 5, 0, 0, 0, time.UTC), rec.Timestamp)
	assert.NotContains(t, rec.Value, `"1"`)
	assertGoldenJSON(t, "spectrum_value", rec.Value)

	rec, err = Spectrum(spectrumRow(), nil)
	require.NoError(t, err)
	assert.Equal(t, `{"snex_id":5}`, rec.Value)
}

func TestSpectrumExtras(t *testing.T) {
	extra, err := SpectrumExtras(spectrumRow())
	require.NoError(t, err)
	assert.Equal(t, SpectrumExtrasKey, extra.Key)
	assert.Equal(t, "spectroscopy", extra.DataType)
	assert.Equal(t, int64(7), extra.TargetID)
	assertGoldenJSON(t, "spectrum_extras", extra.Value)
}
