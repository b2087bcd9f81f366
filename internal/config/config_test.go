package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const minimal = `
legacy:
  driver: mysql
  dsn: "snex:pw@tcp(db1:3306)/supernova"
app:
  driver: pgx
  dsn: "postgres://tom@db2/snex2"
`

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal), nil)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Legacy.Driver)
	assert.Equal(t, int64(1), cfg.Sync.StandardClassificationID)
	assert.Equal(t, uint64(0), cfg.Sync.BatchSize)
	assert.Equal(t, "LCO", cfg.Sync.DefaultTemplateSource)
	assert.Equal(t, uint64(DefaultConnectRetries), cfg.Sync.ConnectRetries)
	assert.Equal(t, "fs", cfg.Spectra.Source)
	assert.Equal(t, ".ascii", cfg.Spectra.Suffix)
	assert.Equal(t, "snexsync", cfg.Metrics.Job)
	assert.Empty(t, cfg.Metrics.PushgatewayURL)
	assert.Equal(t, DefaultLockFile, cfg.LockFile)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestParse_FullFile(t *testing.T) {
	data := minimal + `
sync:
  standard_classification_id: 7
  batch_size: 500
  default_template_source: PS1
  connect_retries: 2
spectra:
  source: s3
  suffix: .txt
  s3:
    bucket: snex-spectra
    prefix: archive
    endpoint: http://minio:9000
    path_style: true
metrics:
  pushgateway_url: http://push:9091
  job: snexsync-nightly
lock_file: /var/run/snexsync.lock
tables:
  legacy:
    photometry: photlco_v2
log:
  level: debug
  format: json
`
	cfg, err := Parse([]byte(data), nil)
	require.NoError(t, err)

	opts := cfg.TransformOptions()
	assert.Equal(t, int64(7), opts.StandardClassificationID)
	assert.Equal(t, "PS1", opts.DefaultTemplateSource)
	assert.Equal(t, ".txt", opts.SpectrumSuffix)
	assert.Equal(t, uint64(500), cfg.Sync.BatchSize)
	assert.Equal(t, uint64(2), cfg.Sync.ConnectRetries)

	s3 := cfg.S3Config()
	assert.Equal(t, "snex-spectra", s3.Bucket)
	assert.Equal(t, "archive", s3.Prefix)
	assert.True(t, s3.PathStyle)

	assert.Equal(t, "http://push:9091", cfg.Metrics.PushgatewayURL)
	assert.Equal(t, "/var/run/snexsync.lock", cfg.LockFile)
	assert.Equal(t, map[string]string{"photometry": "photlco_v2"}, cfg.Tables["legacy"])
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestParse_EnvOverridesFile(t *testing.T) {
	cfg, err := Parse([]byte(minimal), env(map[string]string{
		EnvLegacyDSN:      "from-env-legacy",
		EnvAppDSN:         "from-env-app",
		EnvPushgatewayURL: "http://env-push:9091",
	}))
	require.NoError(t, err)
	assert.Equal(t, "from-env-legacy", cfg.Legacy.DSN)
	assert.Equal(t, "from-env-app", cfg.App.DSN)
	assert.Equal(t, "http://env-push:9091", cfg.Metrics.PushgatewayURL)
}

func TestParse_EnvSuppliesMissingDSN(t *testing.T) {
	data := `
legacy: {driver: mysql}
app: {driver: sqlite3}
`
	_, err := Parse([]byte(data), nil)
	require.Error(t, err)

	cfg, err := Parse([]byte(data), env(map[string]string{EnvLegacyDSN: "a", EnvAppDSN: "b"}))
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.Legacy.DSN)
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	data := `
legacy: {driver: oracle, dsn: x}
app: {driver: pgx}
spectra: {source: s3, suffix: ascii}
tables: {other: {a: b}}
log: {level: loud, format: xml}
`
	_, err := Parse([]byte(data), nil)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, `legacy.driver: unsupported driver "oracle"`)
	assert.Contains(t, msg, "app.dsn: required")
	assert.Contains(t, msg, "spectra.s3.bucket")
	assert.Contains(t, msg, "spectra.suffix")
	assert.Contains(t, msg, `tables: unknown store "other"`)
	assert.Contains(t, msg, "log.level")
	assert.Contains(t, msg, "log.format")
	assert.Len(t, multierr.Errors(errorsOf(err)), 7)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte(minimal+"\nbatch: 3\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snexsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.App.Driver)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "fs", cfg.Spectra.Source)
	assert.Error(t, cfg.Validate())
}

// errorsOf strips the "invalid config" wrapper.
func errorsOf(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return err
}
