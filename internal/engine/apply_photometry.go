package engine

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/roach88/snexsync/internal/appstore"
	"github.com/roach88/snexsync/internal/legacy"
	"github.com/roach88/snexsync/internal/perm"
	"github.com/roach88/snexsync/internal/transform"
)

func applyPhotometry(ctx context.Context, rc *RunContext, e legacy.Entry, log *slog.Logger) (Outcome, error) {
	if e.Action == legacy.ActionDelete {
		// Standard-star rows are never mirrored, so there is nothing of
		// theirs to find here.
		return rc.inTx(ctx, func(tx *appstore.Tx) (Outcome, error) {
			existed, err := tx.DeleteReducedDatum(ctx, appstore.DataTypePhotometry, e.RowID)
			return appliedIf(existed), err
		})
	}

	row, found, err := rc.Legacy.FetchPhotometry(ctx, e.RowID)
	if err != nil {
		return "", err
	}
	if !found {
		return OutcomeMissing, nil
	}
	excluded, err := ownedByStandard(ctx, rc, row.TargetID)
	if err != nil {
		return "", err
	}
	if excluded {
		return OutcomeExcluded, nil
	}

	rec, mirrored, err := transform.Photometry(row, rc.Options)
	if err != nil {
		return "", err
	}
	if !mirrored {
		log.Debug("photometry kind not mirrored", "filetype", row.FileType.Int64, "difftype", row.DiffType.Int64)
		if e.Action == legacy.ActionInsert {
			return OutcomeSkipped, nil
		}
		return rc.inTx(ctx, func(tx *appstore.Tx) (Outcome, error) {
			existed, err := tx.DeleteReducedDatum(ctx, appstore.DataTypePhotometry, row.ID)
			return appliedIf(existed), err
		})
	}

	return rc.inTx(ctx, func(tx *appstore.Tx) (Outcome, error) {
		return upsertDatum(ctx, rc, tx, e.Action, row.ID, rec, row.GroupCode, log)
	})
}

// ownedByStandard reports whether a legacy target is a standard star.
// An unknown target is not excluded; the gap check deals with it.
func ownedByStandard(ctx context.Context, rc *RunContext, targetID int64) (bool, error) {
	target, found, err := rc.Legacy.FetchTarget(ctx, targetID)
	if err != nil || !found {
		return false, err
	}
	return transform.Excluded(target.ClassificationID, rc.Options), nil
}

// upsertDatum writes a reduced datum by its snex_id and grants access to a
// newly created one.
func upsertDatum(ctx context.Context, rc *RunContext, tx *appstore.Tx, action legacy.Action, snexID int64, rec appstore.ReducedDatum, groupCode sql.NullInt64, log *slog.Logger) (Outcome, error) {
	ok, err := tx.TargetExists(ctx, rec.TargetID)
	if err != nil {
		return "", err
	}
	if !ok {
		logGap(log, rec.TargetID)
		return OutcomeGap, nil
	}

	have, exists, err := tx.FindReducedDatum(ctx, rec.DataType, snexID)
	if err != nil {
		return "", err
	}
	if exists {
		if action == legacy.ActionInsert {
			return OutcomeSkipped, nil
		}
		rec.ID = have.ID
		return OutcomeApplied, tx.UpdateReducedDatum(ctx, rec)
	}

	id, err := tx.InsertReducedDatum(ctx, rec)
	if err != nil {
		return "", err
	}
	if err := rc.grant(ctx, tx, groupCode, perm.Object{Kind: perm.ObjectReducedDatum, PK: id}, log); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}
