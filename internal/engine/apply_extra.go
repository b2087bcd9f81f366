package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/snexsync/internal/appstore"
	"github.com/roach88/snexsync/internal/legacy"
	"github.com/roach88/snexsync/internal/transform"
)

var extraKeys = []string{transform.ExtraRedshift, transform.ExtraClassification}

func applyTargetExtra(ctx context.Context, rc *RunContext, e legacy.Entry, log *slog.Logger) (Outcome, error) {
	if e.Action == legacy.ActionDelete {
		return rc.inTx(ctx, func(tx *appstore.Tx) (Outcome, error) {
			changed := false
			for _, key := range extraKeys {
				existed, err := tx.DeleteTargetExtra(ctx, e.RowID, key)
				if err != nil {
					return "", err
				}
				changed = changed || existed
			}
			return appliedIf(changed), nil
		})
	}

	row, found, err := rc.Legacy.FetchTarget(ctx, e.RowID)
	if err != nil {
		return "", err
	}
	if !found {
		return OutcomeMissing, nil
	}

	redshift, hasRedshift := transform.Redshift(row)

	var classification appstore.TargetExtra
	var hasClassification bool
	if row.ClassificationID.Valid {
		name, ok, err := rc.Lookups.ClassificationName(ctx, row.ClassificationID.Int64)
		if err != nil {
			return "", err
		}
		if !ok {
			log.Warn("unknown classification", "classification_id", row.ClassificationID.Int64)
		}
		classification, hasClassification = transform.Classification(row.ID, name)
	}

	return rc.inTx(ctx, func(tx *appstore.Tx) (Outcome, error) {
		ok, err := tx.TargetExists(ctx, row.ID)
		if err != nil {
			return "", err
		}
		if !ok {
			logGap(log, row.ID)
			return OutcomeGap, nil
		}

		a, err := syncExtra(ctx, tx, e.Action, row.ID, transform.ExtraRedshift, redshift, hasRedshift)
		if err != nil {
			return "", err
		}
		b, err := syncExtra(ctx, tx, e.Action, row.ID, transform.ExtraClassification, classification, hasClassification)
		if err != nil {
			return "", err
		}
		return appliedIf(a || b), nil
	})
}

// syncExtra makes one target extra match the legacy state. On insert an
// existing extra is left untouched; on update a vanished legacy value
// removes it.
func syncExtra(ctx context.Context, tx *appstore.Tx, action legacy.Action, targetID int64, key string, want appstore.TargetExtra, present bool) (bool, error) {
	have, exists, err := tx.GetTargetExtra(ctx, targetID, key)
	if err != nil {
		return false, err
	}
	switch {
	case exists && action == legacy.ActionInsert:
		return false, nil
	case !present && exists:
		return tx.DeleteTargetExtra(ctx, targetID, key)
	case !present:
		return false, nil
	case exists:
		if have.Value == want.Value && have.FloatValue == want.FloatValue {
			return false, nil
		}
		want.ID = have.ID
		return true, tx.UpdateTargetExtra(ctx, want)
	default:
		_, err := tx.InsertTargetExtra(ctx, want)
		return err == nil, err
	}
}
