package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/snexsync/internal/appstore"
	"github.com/roach88/snexsync/internal/legacy"
	"github.com/roach88/snexsync/internal/perm"
	"github.com/roach88/snexsync/internal/schema"
	"github.com/roach88/snexsync/internal/sidecar"
	"github.com/roach88/snexsync/internal/transform"
)

// Config wires an Engine.
type Config struct {
	Legacy   *legacy.Store
	App      *appstore.Store
	Sidecars sidecar.Source

	Clock    Clock
	IDs      RunIDGenerator
	Logger   *slog.Logger
	Recorder Recorder

	Transform       transform.Options
	LookupCacheSize int
}

// Engine drains the legacy change log into the application store.
//
// A run is one single-threaded pass: for each entity in Entities and each
// action in legacy.Actions it reads the pending entries of every table the
// entity consumes, applies them one destination transaction at a time and
// retires each after its commit. Entries are never retired before their
// write commits, so a crash at any point leaves them pending and a later run
// re-applies them idempotently.
type Engine struct {
	cfg Config
}

type handler func(ctx context.Context, rc *RunContext, e legacy.Entry, log *slog.Logger) (Outcome, error)

var handlers = map[Entity]map[string]handler{
	EntityTarget: {
		schema.Targets:     applyTarget,
		schema.TargetNames: applyTargetName,
	},
	EntityTargetExtra:  {schema.Targets: applyTargetExtra},
	EntityPhotometry:   {schema.Photometry: applyPhotometry},
	EntitySpectroscopy: {schema.Spectra: applySpectrum},
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Engine, error) {
	if cfg.Legacy == nil || cfg.App == nil {
		return nil, errors.New("engine: legacy and app stores are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.IDs == nil {
		cfg.IDs = UUIDv7Generator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Transform == (transform.Options{}) {
		cfg.Transform = transform.DefaultOptions()
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) newRun() (*RunContext, error) {
	id := e.cfg.IDs.Generate()
	logger := e.cfg.Logger.With("run_id", id)

	lookups, err := legacy.NewLookups(e.cfg.Legacy, e.cfg.LookupCacheSize)
	if err != nil {
		return nil, err
	}
	prop, err := perm.NewPropagator(lookups, logger)
	if err != nil {
		return nil, err
	}
	return &RunContext{
		ID:         id,
		Legacy:     e.cfg.Legacy,
		App:        e.cfg.App,
		Lookups:    lookups,
		Propagator: prop,
		Sidecars:   e.cfg.Sidecars,
		Clock:      e.cfg.Clock,
		Logger:     logger,
		Options:    e.cfg.Transform,
		Recorder:   e.cfg.Recorder,
		deferred:   make(map[int64]struct{}),
	}, nil
}

// Run performs one full pass. The report is returned even when the run is
// aborted; the error is non-nil only for connectivity failures and setup
// errors. Deferred entries are listed in the report, not returned as errors.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	rc, err := e.newRun()
	if err != nil {
		return nil, err
	}
	report := newReport(rc.ID, rc.now())
	defer func() { report.Finished = rc.now() }()

	rc.Logger.Info("run started")
	for _, entity := range Entities {
		for _, action := range legacy.Actions {
			for _, table := range consumes[entity] {
				if err := e.pass(ctx, rc, report, entity, action, table); err != nil {
					report.Aborted = err.Error()
					rc.Logger.Error("run aborted", "error", err)
					return report, err
				}
			}
		}
	}
	rc.Logger.Info("run finished",
		"applied", report.Total(OutcomeApplied),
		"deferred", len(report.Deferred))
	return report, nil
}

// pass applies the pending entries of one (entity, action, table) triple.
// Only connectivity failures are returned. When the change log is read in
// batches, entries deferred in this run do not use up the batch: the pass
// reads on past them until a page defers nothing.
func (e *Engine) pass(ctx context.Context, rc *RunContext, report *Report, entity Entity, action legacy.Action, table string) error {
	var after int64
	for {
		entries, err := rc.Legacy.PendingAfter(ctx, table, action, after)
		if err != nil {
			return fmt.Errorf("read change log %s/%s: %w", table, action, err)
		}
		if len(entries) == 0 {
			return nil
		}
		rc.Logger.Debug("pass", "entity", entity, "action", action, "table", table, "entries", len(entries), "after", after)

		held, err := e.applyPage(ctx, rc, report, entity, action, table, entries)
		if err != nil {
			return err
		}
		if held == 0 {
			return nil
		}
		after = entries[len(entries)-1].ID
	}
}

// applyPage applies one page of entries and returns how many of them are
// held pending by a failure in this run.
func (e *Engine) applyPage(ctx context.Context, rc *RunContext, report *Report, entity Entity, action legacy.Action, table string, entries []legacy.Entry) (int, error) {
	apply := handlers[entity][table]
	retires := lastConsumer[table] == entity
	held := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return held, err
		}
		log := rc.Logger.With("entity", entity, "action", action, "entry_id", entry.ID, "table", entry.Table, "row_id", entry.RowID)

		outcome, err := apply(ctx, rc, entry, log)
		if err == nil && retires {
			if _, earlier := rc.deferred[entry.ID]; earlier {
				log.Debug("left pending after earlier failure")
			} else {
				err = rc.Legacy.Retire(ctx, entry)
			}
		}
		if err != nil {
			ee := newEntryError(entity, entry, err)
			if ee.Class == ClassConnectivity {
				return held, ee
			}
			log.Warn("entry deferred", "class", ee.Class, "error", err)
			if _, earlier := rc.deferred[entry.ID]; !earlier {
				rc.deferred[entry.ID] = struct{}{}
				report.deferEntry(ee)
			}
			outcome = OutcomeDeferred
		}

		if _, ok := rc.deferred[entry.ID]; ok {
			held++
		}

		log.Debug("entry processed", "outcome", outcome)
		report.count(entity, action, outcome)
		rc.Recorder.RecordEntry(string(entity), string(action), string(outcome))
	}
	return held, nil
}
