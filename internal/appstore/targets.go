package appstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/snexsync/internal/schema"
)

// TargetExists reports whether a target with the given id is mirrored.
func (t *Tx) TargetExists(ctx context.Context, id int64) (bool, error) {
	ok, err := t.exists(ctx, schema.AppTarget, sq.Eq{t.col("id"): id})
	if err != nil {
		return false, fmt.Errorf("target %d exists: %w", id, err)
	}
	return ok, nil
}

// GetTarget loads a target by id.
func (t *Tx) GetTarget(ctx context.Context, id int64) (Target, bool, error) {
	var row Target
	found, err := t.getOne(ctx, &row, t.selectFrom(schema.AppTarget).Where(sq.Eq{t.col("id"): id}))
	if err != nil {
		return Target{}, false, fmt.Errorf("get target %d: %w", id, err)
	}
	return row, found, nil
}

// InsertTarget creates a target with an explicit id.
func (t *Tx) InsertTarget(ctx context.Context, rec Target) error {
	_, err := t.exec(ctx, t.d.Builder().
		Insert(t.table(schema.AppTarget)).
		Columns(t.d.Columns("id", "name", "type", "ra", "dec", "epoch", "created", "modified")...).
		Values(rec.ID, rec.Name, rec.Type, rec.RA, rec.Dec, rec.Epoch, rec.Created, rec.Modified))
	if err != nil {
		return fmt.Errorf("insert target %d: %w", rec.ID, err)
	}
	return nil
}

// UpdateTarget overwrites the mirrored fields of a target. The name is owned
// by the application once the target exists and is left alone.
func (t *Tx) UpdateTarget(ctx context.Context, rec Target) error {
	_, err := t.exec(ctx, t.d.Builder().
		Update(t.table(schema.AppTarget)).
		Set(t.col("type"), rec.Type).
		Set(t.col("ra"), rec.RA).
		Set(t.col("dec"), rec.Dec).
		Set(t.col("epoch"), rec.Epoch).
		Set(t.col("created"), rec.Created).
		Set(t.col("modified"), rec.Modified).
		Where(sq.Eq{t.col("id"): rec.ID}))
	if err != nil {
		return fmt.Errorf("update target %d: %w", rec.ID, err)
	}
	return nil
}

// DeleteTarget removes a target together with its names and their links,
// extras, reduced data and reduced-datum extras. It reports whether the
// target existed.
func (t *Tx) DeleteTarget(ctx context.Context, id int64) (bool, error) {
	for _, logical := range []string{
		schema.AppTargetName,
		schema.AppTargetNameLink,
		schema.AppTargetExtra,
		schema.AppReducedDatumExtra,
		schema.AppReducedDatum,
	} {
		_, err := t.exec(ctx, t.d.Builder().
			Delete(t.table(logical)).
			Where(sq.Eq{t.col("target_id"): id}))
		if err != nil {
			return false, fmt.Errorf("delete target %d: %s: %w", id, logical, err)
		}
	}
	n, err := t.exec(ctx, t.d.Builder().
		Delete(t.table(schema.AppTarget)).
		Where(sq.Eq{t.col("id"): id}))
	if err != nil {
		return false, fmt.Errorf("delete target %d: %w", id, err)
	}
	return n > 0, nil
}

// FindTargetName loads the target name with the given natural key.
func (t *Tx) FindTargetName(ctx context.Context, targetID int64, name string) (TargetName, bool, error) {
	var row TargetName
	q := t.selectFrom(schema.AppTargetName).
		Where(sq.Eq{t.col("target_id"): targetID, t.col("name"): name}).
		OrderBy(t.col("id") + " ASC").
		Limit(1)
	found, err := t.getOne(ctx, &row, q)
	if err != nil {
		return TargetName{}, false, fmt.Errorf("get target name %q of %d: %w", name, targetID, err)
	}
	return row, found, nil
}

// TargetNameTaken reports whether targetID already has the given name.
func (t *Tx) TargetNameTaken(ctx context.Context, targetID int64, name string) (bool, error) {
	ok, err := t.exists(ctx, schema.AppTargetName, sq.Eq{
		t.col("target_id"): targetID,
		t.col("name"):      name,
	})
	if err != nil {
		return false, fmt.Errorf("target name %q of %d exists: %w", name, targetID, err)
	}
	return ok, nil
}

// InsertTargetName creates a target name and returns the id the store
// assigned to it.
func (t *Tx) InsertTargetName(ctx context.Context, rec TargetName) (int64, error) {
	id, err := t.insertID(ctx, t.d.Builder().
		Insert(t.table(schema.AppTargetName)).
		Columns(t.d.Columns("target_id", "name", "created", "modified")...).
		Values(rec.TargetID, rec.Name, rec.Created, rec.Modified))
	if err != nil {
		return 0, fmt.Errorf("insert target name %q of %d: %w", rec.Name, rec.TargetID, err)
	}
	return id, nil
}

// UpdateTargetName overwrites name and target of the target name with id
// rec.ID.
func (t *Tx) UpdateTargetName(ctx context.Context, rec TargetName) error {
	_, err := t.exec(ctx, t.d.Builder().
		Update(t.table(schema.AppTargetName)).
		Set(t.col("target_id"), rec.TargetID).
		Set(t.col("name"), rec.Name).
		Set(t.col("modified"), rec.Modified).
		Where(sq.Eq{t.col("id"): rec.ID}))
	if err != nil {
		return fmt.Errorf("update target name %d: %w", rec.ID, err)
	}
	return nil
}

// DeleteTargetName removes the target name with the given natural key and
// reports whether it existed.
func (t *Tx) DeleteTargetName(ctx context.Context, targetID int64, name string) (bool, error) {
	n, err := t.exec(ctx, t.d.Builder().
		Delete(t.table(schema.AppTargetName)).
		Where(sq.Eq{t.col("target_id"): targetID, t.col("name"): name}))
	if err != nil {
		return false, fmt.Errorf("delete target name %q of %d: %w", name, targetID, err)
	}
	return n > 0, nil
}

// GetTargetNameLink loads the link of a legacy target name.
func (t *Tx) GetTargetNameLink(ctx context.Context, legacyID int64) (TargetNameLink, bool, error) {
	var row TargetNameLink
	found, err := t.getOne(ctx, &row, t.selectFrom(schema.AppTargetNameLink).Where(sq.Eq{t.col("legacy_id"): legacyID}))
	if err != nil {
		return TargetNameLink{}, false, fmt.Errorf("get target name link %d: %w", legacyID, err)
	}
	return row, found, nil
}

// PutTargetNameLink creates or replaces the link of a legacy target name.
func (t *Tx) PutTargetNameLink(ctx context.Context, link TargetNameLink) error {
	if err := t.DeleteTargetNameLink(ctx, link.LegacyID); err != nil {
		return err
	}
	_, err := t.exec(ctx, t.d.Builder().
		Insert(t.table(schema.AppTargetNameLink)).
		Columns(t.d.Columns("legacy_id", "target_id", "name")...).
		Values(link.LegacyID, link.TargetID, link.Name))
	if err != nil {
		return fmt.Errorf("put target name link %d: %w", link.LegacyID, err)
	}
	return nil
}

// DeleteTargetNameLink removes the link of a legacy target name, if any.
func (t *Tx) DeleteTargetNameLink(ctx context.Context, legacyID int64) error {
	_, err := t.exec(ctx, t.d.Builder().
		Delete(t.table(schema.AppTargetNameLink)).
		Where(sq.Eq{t.col("legacy_id"): legacyID}))
	if err != nil {
		return fmt.Errorf("delete target name link %d: %w", legacyID, err)
	}
	return nil
}

// GetTargetExtra loads the extra stored under key for a target.
func (t *Tx) GetTargetExtra(ctx context.Context, targetID int64, key string) (TargetExtra, bool, error) {
	var row TargetExtra
	q := t.selectFrom(schema.AppTargetExtra).
		Where(sq.Eq{t.col("target_id"): targetID, t.col("key"): key}).
		OrderBy(t.col("id") + " ASC").
		Limit(1)
	found, err := t.getOne(ctx, &row, q)
	if err != nil {
		return TargetExtra{}, false, fmt.Errorf("get target extra %s of %d: %w", key, targetID, err)
	}
	return row, found, nil
}

// InsertTargetExtra creates a target extra and returns its id.
func (t *Tx) InsertTargetExtra(ctx context.Context, rec TargetExtra) (int64, error) {
	id, err := t.insertID(ctx, t.d.Builder().
		Insert(t.table(schema.AppTargetExtra)).
		Columns(t.d.Columns("target_id", "key", "value", "float_value")...).
		Values(rec.TargetID, rec.Key, rec.Value, rec.FloatValue))
	if err != nil {
		return 0, fmt.Errorf("insert target extra %s of %d: %w", rec.Key, rec.TargetID, err)
	}
	return id, nil
}

// UpdateTargetExtra overwrites the value of an existing extra.
func (t *Tx) UpdateTargetExtra(ctx context.Context, rec TargetExtra) error {
	_, err := t.exec(ctx, t.d.Builder().
		Update(t.table(schema.AppTargetExtra)).
		Set(t.col("value"), rec.Value).
		Set(t.col("float_value"), rec.FloatValue).
		Where(sq.Eq{t.col("id"): rec.ID}))
	if err != nil {
		return fmt.Errorf("update target extra %d: %w", rec.ID, err)
	}
	return nil
}

// DeleteTargetExtra removes every extra stored under key for a target and
// reports whether any existed.
func (t *Tx) DeleteTargetExtra(ctx context.Context, targetID int64, key string) (bool, error) {
	n, err := t.exec(ctx, t.d.Builder().
		Delete(t.table(schema.AppTargetExtra)).
		Where(sq.Eq{t.col("target_id"): targetID, t.col("key"): key}))
	if err != nil {
		return false, fmt.Errorf("delete target extra %s of %d: %w", key, targetID, err)
	}
	return n > 0, nil
}
