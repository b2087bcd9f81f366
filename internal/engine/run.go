package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/roach88/snexsync/internal/appstore"
	"github.com/roach88/snexsync/internal/legacy"
	"github.com/roach88/snexsync/internal/perm"
	"github.com/roach88/snexsync/internal/schema"
	"github.com/roach88/snexsync/internal/sidecar"
	"github.com/roach88/snexsync/internal/transform"
)

// Entity is a kind of mirrored record. Entities are synced in the order of
// Entities so targets exist before anything that refers to them.
type Entity string

const (
	EntityTarget       Entity = "target"
	EntityTargetExtra  Entity = "target_extra"
	EntityPhotometry   Entity = "photometry"
	EntitySpectroscopy Entity = "spectroscopy"
)

// Entities lists every entity in processing order.
var Entities = []Entity{EntityTarget, EntityTargetExtra, EntityPhotometry, EntitySpectroscopy}

// consumes lists the legacy tables whose change-log entries an entity reads.
var consumes = map[Entity][]string{
	EntityTarget:       {schema.Targets, schema.TargetNames},
	EntityTargetExtra:  {schema.Targets},
	EntityPhotometry:   {schema.Photometry},
	EntitySpectroscopy: {schema.Spectra},
}

// lastConsumer maps each watched table to the entity that retires its
// entries: the last one in Entities to read it.
var lastConsumer = func() map[string]Entity {
	m := make(map[string]Entity)
	for _, entity := range Entities {
		for _, table := range consumes[entity] {
			m[table] = entity
		}
	}
	return m
}()

// Recorder receives one call per processed entry.
type Recorder interface {
	RecordEntry(entity, action, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordEntry(string, string, string) {}

// RunContext is the state of one run. Nothing outlives it.
type RunContext struct {
	ID         string
	Legacy     *legacy.Store
	App        *appstore.Store
	Lookups    *legacy.Lookups
	Propagator *perm.Propagator
	Sidecars   sidecar.Source
	Clock      Clock
	Logger     *slog.Logger
	Options    transform.Options
	Recorder   Recorder

	// deferred holds change-log entry ids that failed in an earlier pass of
	// this run; they are not retired by later consumers.
	deferred map[int64]struct{}
}

func (rc *RunContext) now() time.Time {
	return rc.Clock.Now().UTC()
}

// inTx runs fn in one destination transaction and commits it if fn
// succeeds.
func (rc *RunContext) inTx(ctx context.Context, fn func(tx *appstore.Tx) (Outcome, error)) (Outcome, error) {
	tx, err := rc.App.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	outcome, err := fn(tx)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return outcome, nil
}

// grant propagates a legacy group mask and logs what it did.
func (rc *RunContext) grant(ctx context.Context, tx *appstore.Tx, code sql.NullInt64, obj perm.Object, log *slog.Logger) error {
	mask := perm.MaskFromNullable(code.Int64, code.Valid)
	if mask == 0 {
		return nil
	}
	granted, err := rc.Propagator.Grant(ctx, tx, mask, obj)
	if err != nil {
		return err
	}
	if len(granted) > 0 {
		log.Debug("granted view access", "object", obj.Kind.String(), "pk", obj.PK, "groups", granted)
	}
	return nil
}
