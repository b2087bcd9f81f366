package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/snexsync/internal/appstore"
	"github.com/roach88/snexsync/internal/legacy"
	"github.com/roach88/snexsync/internal/perm"
	"github.com/roach88/snexsync/internal/transform"
)

func applyTarget(ctx context.Context, rc *RunContext, e legacy.Entry, log *slog.Logger) (Outcome, error) {
	if e.Action == legacy.ActionDelete {
		return rc.inTx(ctx, func(tx *appstore.Tx) (Outcome, error) {
			existed, err := tx.DeleteTarget(ctx, e.RowID)
			return appliedIf(existed), err
		})
	}

	row, found, err := rc.Legacy.FetchTarget(ctx, e.RowID)
	if err != nil {
		return "", err
	}
	if !found {
		return OutcomeMissing, nil
	}

	return rc.inTx(ctx, func(tx *appstore.Tx) (Outcome, error) {
		exists, err := tx.TargetExists(ctx, row.ID)
		if err != nil {
			return "", err
		}
		if exists {
			if e.Action == legacy.ActionInsert {
				return OutcomeSkipped, nil
			}
			return OutcomeApplied, tx.UpdateTarget(ctx, transform.Target(row, "", rc.now()))
		}

		name, _, err := rc.Lookups.PrimaryName(ctx, row.ID)
		if err != nil {
			return "", err
		}
		if err := tx.InsertTarget(ctx, transform.Target(row, name, rc.now())); err != nil {
			return "", err
		}
		if err := rc.grant(ctx, tx, row.GroupCode, perm.Object{Kind: perm.ObjectTarget, PK: row.ID}, log); err != nil {
			return "", err
		}
		return OutcomeApplied, nil
	})
}

// applyTargetName mirrors a legacy target name by its (target, name) natural
// key. The link table remembers which pair each legacy row was mirrored to, so
// renames and deletes find the destination row without sharing ids with it.
func applyTargetName(ctx context.Context, rc *RunContext, e legacy.Entry, log *slog.Logger) (Outcome, error) {
	if e.Action == legacy.ActionDelete {
		return rc.inTx(ctx, func(tx *appstore.Tx) (Outcome, error) {
			link, linked, err := tx.GetTargetNameLink(ctx, e.RowID)
			if err != nil || !linked {
				return OutcomeSkipped, err
			}
			existed, err := tx.DeleteTargetName(ctx, link.TargetID, link.Name)
			if err != nil {
				return "", err
			}
			return appliedIf(existed), tx.DeleteTargetNameLink(ctx, e.RowID)
		})
	}

	row, found, err := rc.Legacy.FetchTargetName(ctx, e.RowID)
	if err != nil {
		return "", err
	}
	if !found {
		return OutcomeMissing, nil
	}
	rec, err := transform.TargetName(row, rc.now())
	if err != nil {
		return "", err
	}

	return rc.inTx(ctx, func(tx *appstore.Tx) (Outcome, error) {
		ok, err := tx.TargetExists(ctx, rec.TargetID)
		if err != nil {
			return "", err
		}
		if !ok {
			logGap(log, rec.TargetID)
			return OutcomeGap, nil
		}

		link, linked, err := tx.GetTargetNameLink(ctx, row.ID)
		if err != nil {
			return "", err
		}
		var outcome Outcome
		if linked && (link.TargetID != rec.TargetID || link.Name != rec.Name) {
			outcome, err = renameTargetName(ctx, tx, link, rec)
		} else {
			outcome, err = ensureTargetName(ctx, tx, rec)
		}
		if err != nil {
			return "", err
		}
		return outcome, tx.PutTargetNameLink(ctx, appstore.TargetNameLink{
			LegacyID: row.ID,
			TargetID: rec.TargetID,
			Name:     rec.Name,
		})
	})
}

// ensureTargetName creates rec unless its pair is already present.
func ensureTargetName(ctx context.Context, tx *appstore.Tx, rec appstore.TargetName) (Outcome, error) {
	taken, err := tx.TargetNameTaken(ctx, rec.TargetID, rec.Name)
	if err != nil {
		return "", err
	}
	if taken {
		return OutcomeSkipped, nil
	}
	_, err = tx.InsertTargetName(ctx, rec)
	return OutcomeApplied, err
}

// renameTargetName moves the row mirrored under link to rec's pair. When the
// new pair already exists the old row is dropped instead, so a target never
// carries the same name twice.
func renameTargetName(ctx context.Context, tx *appstore.Tx, link appstore.TargetNameLink, rec appstore.TargetName) (Outcome, error) {
	cur, found, err := tx.FindTargetName(ctx, link.TargetID, link.Name)
	if err != nil {
		return "", err
	}
	if !found {
		return ensureTargetName(ctx, tx, rec)
	}
	taken, err := tx.TargetNameTaken(ctx, rec.TargetID, rec.Name)
	if err != nil {
		return "", err
	}
	if taken {
		_, err := tx.DeleteTargetName(ctx, link.TargetID, link.Name)
		return OutcomeApplied, err
	}
	cur.TargetID = rec.TargetID
	cur.Name = rec.Name
	cur.Modified = rec.Modified
	return OutcomeApplied, tx.UpdateTargetName(ctx, cur)
}

func appliedIf(changed bool) Outcome {
	if changed {
		return OutcomeApplied
	}
	return OutcomeSkipped
}

func logGap(log *slog.Logger, targetID int64) {
	log.Warn("owning target not mirrored, retiring entry", "target_id", targetID)
}
