package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/multierr"

	"github.com/roach88/snexsync/internal/appstore"
	"github.com/roach88/snexsync/internal/config"
	"github.com/roach88/snexsync/internal/legacy"
	"github.com/roach88/snexsync/internal/schema"
	"github.com/roach88/snexsync/internal/sidecar"
	"github.com/roach88/snexsync/internal/sqldb"
)

// setupError is a wiring failure tagged with how the command should exit.
type setupError struct {
	exit    int
	code    string
	message string
	err     error
}

func (e *setupError) Error() string {
	return e.message + ": " + e.err.Error()
}

func (e *setupError) Unwrap() error {
	return e.err
}

func (f *OutputFormatter) failSetup(err error) error {
	var se *setupError
	if errors.As(err, &se) {
		return f.failDetails(se.exit, se.code, se.message, se.err)
	}
	return f.fail(ExitFailure, ErrCodeConnect, "setup failed", err)
}

// failDetails is fail with every combined error listed separately.
func (f *OutputFormatter) failDetails(exit int, code, message string, err error) error {
	errs := multierr.Errors(err)
	if len(errs) <= 1 {
		return f.fail(exit, code, message, err)
	}
	details := make([]string, len(errs))
	for i, e := range errs {
		details[i] = e.Error()
	}
	if outErr := f.Error(code, message, details); outErr != nil {
		return outErr
	}
	return WrapExitError(exit, message, err)
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, &setupError{ExitCommandError, ErrCodeConfig, "failed to load config", err}
	}
	return cfg, nil
}

// newLogger builds the process logger: text or JSON on w, debug when
// verbose.
func newLogger(cfg *config.Config, verbose bool, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Log.Level))); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(w, hopts)
	} else {
		handler = slog.NewTextHandler(w, hopts)
	}
	return slog.New(handler)
}

func loadManifest(cfg *config.Config) (*schema.Manifest, error) {
	m, err := schema.Load()
	if err != nil {
		return nil, &setupError{ExitFailure, ErrCodeSchema, "failed to load schema manifest", err}
	}
	for _, side := range []schema.Side{schema.SideLegacy, schema.SideApp} {
		if err := m.Override(side, cfg.Tables[string(side)]); err != nil {
			return nil, &setupError{ExitCommandError, ErrCodeConfig, "invalid table override", err}
		}
	}
	return m, nil
}

// stores holds the open database handles of a command.
type stores struct {
	legacyDB *sqlx.DB
	appDB    *sqlx.DB
	Legacy   *legacy.Store
	App      *appstore.Store
}

func (s *stores) Close() error {
	var err error
	if s.legacyDB != nil {
		err = multierr.Append(err, s.legacyDB.Close())
	}
	if s.appDB != nil {
		err = multierr.Append(err, s.appDB.Close())
	}
	return err
}

// openSide connects to one store and checks it against the manifest.
func openSide(ctx context.Context, cfg *config.Config, m *schema.Manifest, side schema.Side, logger *slog.Logger) (*sqlx.DB, sqldb.Dialect, error) {
	sc := cfg.Legacy
	if side == schema.SideApp {
		sc = cfg.App
	}
	d, err := sqldb.DialectFor(sc.Driver)
	if err != nil {
		return nil, d, &setupError{ExitCommandError, ErrCodeConfig, "invalid driver", err}
	}

	logger.Debug("connecting", "store", side, "driver", sc.Driver)
	db, err := sqldb.Open(ctx, sc.Driver, sc.DSN, sqldb.Options{Retries: cfg.Sync.ConnectRetries})
	if err != nil {
		return nil, d, &setupError{ExitFailure, ErrCodeConnect, fmt.Sprintf("failed to connect to %s store", side), err}
	}
	if err := schema.Validate(ctx, db, d, side, m.Tables(side)); err != nil {
		db.Close()
		return nil, d, &setupError{ExitFailure, ErrCodeSchema, fmt.Sprintf("%s store does not match the schema manifest", side), err}
	}
	logger.Debug("store ready", "store", side)
	return db, d, nil
}

func openLegacy(ctx context.Context, cfg *config.Config, m *schema.Manifest, logger *slog.Logger) (*stores, error) {
	db, d, err := openSide(ctx, cfg, m, schema.SideLegacy, logger)
	if err != nil {
		return nil, err
	}
	return &stores{
		legacyDB: db,
		Legacy:   legacy.New(db, d, m.Legacy, legacy.Options{BatchSize: cfg.Sync.BatchSize}),
	}, nil
}

func openStores(ctx context.Context, cfg *config.Config, m *schema.Manifest, logger *slog.Logger) (*stores, error) {
	st, err := openLegacy(ctx, cfg, m, logger)
	if err != nil {
		return nil, err
	}
	db, d, err := openSide(ctx, cfg, m, schema.SideApp, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	st.appDB = db
	st.App = appstore.New(db, d, m.App)
	return st, nil
}

func newSidecars(ctx context.Context, cfg *config.Config) (sidecar.Source, error) {
	switch cfg.Spectra.Source {
	case sidecar.KindS3:
		src, err := sidecar.NewS3(ctx, cfg.S3Config())
		if err != nil {
			return nil, &setupError{ExitCommandError, ErrCodeConfig, "failed to configure s3 sidecars", err}
		}
		return src, nil
	default:
		return sidecar.NewFS(cfg.Spectra.Root), nil
	}
}
