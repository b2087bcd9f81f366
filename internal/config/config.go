// Package config loads the snexsync configuration file.
//
// The file is YAML. Secrets can be supplied through the environment instead:
// SNEXSYNC_LEGACY_DSN, SNEXSYNC_APP_DSN and SNEXSYNC_PUSHGATEWAY_URL take
// precedence over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/roach88/snexsync/internal/sidecar"
	"github.com/roach88/snexsync/internal/sqldb"
	"github.com/roach88/snexsync/internal/transform"
)

// Environment variables that override file values.
const (
	EnvLegacyDSN      = "SNEXSYNC_LEGACY_DSN"
	EnvAppDSN         = "SNEXSYNC_APP_DSN"
	EnvPushgatewayURL = "SNEXSYNC_PUSHGATEWAY_URL"
)

// Defaults.
const (
	DefaultConnectRetries = 5
	DefaultMetricsJob     = "snexsync"
	DefaultLockFile       = "/tmp/snexsync.lock"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config is the full configuration of a snexsync process.
type Config struct {
	Legacy   Store   `yaml:"legacy"`
	App      Store   `yaml:"app"`
	Sync     Sync    `yaml:"sync"`
	Spectra  Spectra `yaml:"spectra"`
	Metrics  Metrics `yaml:"metrics"`
	LockFile string  `yaml:"lock_file"`

	// Tables overrides physical table names, keyed by store ("legacy" or
	// "app") and then logical name.
	Tables map[string]map[string]string `yaml:"tables"`

	Log Log `yaml:"log"`
}

// Store addresses one database.
type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Sync tunes the replication pass.
type Sync struct {
	StandardClassificationID int64  `yaml:"standard_classification_id"`
	BatchSize                uint64 `yaml:"batch_size"`
	DefaultTemplateSource    string `yaml:"default_template_source"`
	ConnectRetries           uint64 `yaml:"connect_retries"`
}

// Spectra locates spectrum sidecar files.
type Spectra struct {
	Source string `yaml:"source"`
	Root   string `yaml:"root"`
	Suffix string `yaml:"suffix"`
	S3     S3     `yaml:"s3"`
}

// S3 configures the s3 sidecar source.
type S3 struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Metrics configures the Pushgateway push at the end of a run.
// An empty PushgatewayURL disables pushing.
type Metrics struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with every default applied and no stores.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the file at path, applies defaults and environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, os.Getenv)
}

// Parse decodes YAML config. getenv supplies environment overrides; it may
// be nil.
func Parse(data []byte, getenv func(string) string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if getenv != nil {
		cfg.applyEnv(getenv)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	d := transform.DefaultOptions()
	if c.Sync.StandardClassificationID == 0 {
		c.Sync.StandardClassificationID = d.StandardClassificationID
	}
	if c.Sync.DefaultTemplateSource == "" {
		c.Sync.DefaultTemplateSource = d.DefaultTemplateSource
	}
	if c.Sync.ConnectRetries == 0 {
		c.Sync.ConnectRetries = DefaultConnectRetries
	}
	if c.Spectra.Source == "" {
		c.Spectra.Source = sidecar.KindFS
	}
	if c.Spectra.Suffix == "" {
		c.Spectra.Suffix = d.SpectrumSuffix
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = DefaultMetricsJob
	}
	if c.LockFile == "" {
		c.LockFile = DefaultLockFile
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvLegacyDSN); v != "" {
		c.Legacy.DSN = v
	}
	if v := getenv(EnvAppDSN); v != "" {
		c.App.DSN = v
	}
	if v := getenv(EnvPushgatewayURL); v != "" {
		c.Metrics.PushgatewayURL = v
	}
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf(format, args...))
		}
	}

	stores := []struct {
		name string
		s    Store
	}{{"legacy", c.Legacy}, {"app", c.App}}
	for _, st := range stores {
		_, err := sqldb.DialectFor(st.s.Driver)
		check(err == nil, "%s.driver: unsupported driver %q", st.name, st.s.Driver)
		check(st.s.DSN != "", "%s.dsn: required", st.name)
	}

	switch c.Spectra.Source {
	case sidecar.KindFS:
	case sidecar.KindS3:
		check(c.Spectra.S3.Bucket != "", "spectra.s3.bucket: required for s3 source")
	default:
		check(false, "spectra.source: unknown source %q", c.Spectra.Source)
	}
	check(strings.HasPrefix(c.Spectra.Suffix, "."), "spectra.suffix: %q must start with a dot", c.Spectra.Suffix)

	for side := range c.Tables {
		check(side == "legacy" || side == "app", "tables: unknown store %q", side)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		check(false, "log.level: unknown level %q", c.Log.Level)
	}
	check(c.Log.Format == "text" || c.Log.Format == "json", "log.format: must be text or json, got %q", c.Log.Format)

	if errs != nil {
		return fmt.Errorf("invalid config: %w", errs)
	}
	return nil
}

// TransformOptions returns the mapping options selected by c.
func (c *Config) TransformOptions() transform.Options {
	return transform.Options{
		StandardClassificationID: c.Sync.StandardClassificationID,
		DefaultTemplateSource:    c.Sync.DefaultTemplateSource,
		SpectrumSuffix:           c.Spectra.Suffix,
	}
}

// S3Config returns the sidecar S3 settings.
func (c *Config) S3Config() sidecar.S3Config {
	s := c.Spectra.S3
	return sidecar.S3Config{
		Bucket:          s.Bucket,
		Prefix:          s.Prefix,
		Region:          s.Region,
		Endpoint:        s.Endpoint,
		PathStyle:       s.PathStyle,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
	}
}
