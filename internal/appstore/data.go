package appstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/snexsync/internal/schema"
)

// FindReducedDatum locates the reduced datum mirrored from legacy row snexID.
func (t *Tx) FindReducedDatum(ctx context.Context, dataType string, snexID int64) (ReducedDatum, bool, error) {
	var row ReducedDatum
	q := t.selectFrom(schema.AppReducedDatum).
		Where(sq.Eq{t.col("data_type"): dataType}).
		Where(t.snexID(snexID)).
		OrderBy(t.col("id") + " ASC").
		Limit(1)
	found, err := t.getOne(ctx, &row, q)
	if err != nil {
		return ReducedDatum{}, false, fmt.Errorf("find %s datum snex_id=%d: %w", dataType, snexID, err)
	}
	return row, found, nil
}

// InsertReducedDatum creates a reduced datum and returns its id.
func (t *Tx) InsertReducedDatum(ctx context.Context, rec ReducedDatum) (int64, error) {
	id, err := t.insertID(ctx, t.d.Builder().
		Insert(t.table(schema.AppReducedDatum)).
		Columns(t.d.Columns("target_id", "data_type", "timestamp", "value", "source_name", "source_location")...).
		Values(rec.TargetID, rec.DataType, rec.Timestamp, rec.Value, rec.SourceName, rec.SourceLocation))
	if err != nil {
		return 0, fmt.Errorf("insert %s datum for target %d: %w", rec.DataType, rec.TargetID, err)
	}
	return id, nil
}

// UpdateReducedDatum overwrites the mirrored fields of an existing datum.
func (t *Tx) UpdateReducedDatum(ctx context.Context, rec ReducedDatum) error {
	_, err := t.exec(ctx, t.d.Builder().
		Update(t.table(schema.AppReducedDatum)).
		Set(t.col("target_id"), rec.TargetID).
		Set(t.col("timestamp"), rec.Timestamp).
		Set(t.col("value"), rec.Value).
		Set(t.col("source_name"), rec.SourceName).
		Set(t.col("source_location"), rec.SourceLocation).
		Where(sq.Eq{t.col("id"): rec.ID}))
	if err != nil {
		return fmt.Errorf("update datum %d: %w", rec.ID, err)
	}
	return nil
}

// DeleteReducedDatum removes the datum mirrored from snexID and reports
// whether one existed.
func (t *Tx) DeleteReducedDatum(ctx context.Context, dataType string, snexID int64) (bool, error) {
	n, err := t.exec(ctx, t.d.Builder().
		Delete(t.table(schema.AppReducedDatum)).
		Where(sq.Eq{t.col("data_type"): dataType}).
		Where(t.snexID(snexID)))
	if err != nil {
		return false, fmt.Errorf("delete %s datum snex_id=%d: %w", dataType, snexID, err)
	}
	return n > 0, nil
}

// FindReducedDatumExtra locates the extra stored under key for legacy row snexID.
func (t *Tx) FindReducedDatumExtra(ctx context.Context, key string, snexID int64) (ReducedDatumExtra, bool, error) {
	var row ReducedDatumExtra
	q := t.selectFrom(schema.AppReducedDatumExtra).
		Where(sq.Eq{t.col("key"): key}).
		Where(t.snexID(snexID)).
		OrderBy(t.col("id") + " ASC").
		Limit(1)
	found, err := t.getOne(ctx, &row, q)
	if err != nil {
		return ReducedDatumExtra{}, false, fmt.Errorf("find datum extra %s snex_id=%d: %w", key, snexID, err)
	}
	return row, found, nil
}

// InsertReducedDatumExtra creates a reduced-datum extra and returns its id.
func (t *Tx) InsertReducedDatumExtra(ctx context.Context, rec ReducedDatumExtra) (int64, error) {
	id, err := t.insertID(ctx, t.d.Builder().
		Insert(t.table(schema.AppReducedDatumExtra)).
		Columns(t.d.Columns("target_id", "data_type", "key", "value")...).
		Values(rec.TargetID, rec.DataType, rec.Key, rec.Value))
	if err != nil {
		return 0, fmt.Errorf("insert datum extra %s for target %d: %w", rec.Key, rec.TargetID, err)
	}
	return id, nil
}

// UpdateReducedDatumExtra overwrites an existing extra.
func (t *Tx) UpdateReducedDatumExtra(ctx context.Context, rec ReducedDatumExtra) error {
	_, err := t.exec(ctx, t.d.Builder().
		Update(t.table(schema.AppReducedDatumExtra)).
		Set(t.col("target_id"), rec.TargetID).
		Set(t.col("data_type"), rec.DataType).
		Set(t.col("value"), rec.Value).
		Where(sq.Eq{t.col("id"): rec.ID}))
	if err != nil {
		return fmt.Errorf("update datum extra %d: %w", rec.ID, err)
	}
	return nil
}

// DeleteReducedDatumExtra removes the extra stored under key for snexID.
func (t *Tx) DeleteReducedDatumExtra(ctx context.Context, key string, snexID int64) (bool, error) {
	n, err := t.exec(ctx, t.d.Builder().
		Delete(t.table(schema.AppReducedDatumExtra)).
		Where(sq.Eq{t.col("key"): key}).
		Where(t.snexID(snexID)))
	if err != nil {
		return false, fmt.Errorf("delete datum extra %s snex_id=%d: %w", key, snexID, err)
	}
	return n > 0, nil
}
