package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/snexsync/internal/appstore"
	"github.com/roach88/snexsync/internal/legacy"
	"github.com/roach88/snexsync/internal/transform"
)

func applySpectrum(ctx context.Context, rc *RunContext, e legacy.Entry, log *slog.Logger) (Outcome, error) {
	if e.Action == legacy.ActionDelete {
		return rc.inTx(ctx, func(tx *appstore.Tx) (Outcome, error) {
			datum, err := tx.DeleteReducedDatum(ctx, appstore.DataTypeSpectroscopy, e.RowID)
			if err != nil {
				return "", err
			}
			extra, err := tx.DeleteReducedDatumExtra(ctx, transform.SpectrumExtrasKey, e.RowID)
			return appliedIf(datum || extra), err
		})
	}

	row, found, err := rc.Legacy.FetchSpectrum(ctx, e.RowID)
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

	points, err := readSidecar(ctx, rc, row, log)
	if err != nil {
		return "", err
	}
	rec, err := transform.Spectrum(row, points)
	if err != nil {
		return "", err
	}
	extra, err := transform.SpectrumExtras(row)
	if err != nil {
		return "", err
	}

	return rc.inTx(ctx, func(tx *appstore.Tx) (Outcome, error) {
		outcome, err := upsertDatum(ctx, rc, tx, e.Action, row.ID, rec, row.GroupCode, log)
		if err != nil || outcome != OutcomeApplied {
			return outcome, err
		}
		return outcome, upsertSpectrumExtras(ctx, tx, row.ID, extra)
	})
}

func readSidecar(ctx context.Context, rc *RunContext, row legacy.Spectrum, log *slog.Logger) ([]transform.SpectrumPoint, error) {
	if rc.Sidecars == nil {
		return nil, errors.New("no spectrum sidecar source configured")
	}
	p, err := transform.SidecarPath(row, rc.Options)
	if err != nil {
		return nil, err
	}
	r, err := rc.Sidecars.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	points, err := transform.ParseSidecar(r)
	if err != nil {
		return nil, fmt.Errorf("sidecar %s: %w", p, err)
	}
	log.Debug("read spectrum sidecar", "path", p, "points", len(points))
	return points, nil
}

func upsertSpectrumExtras(ctx context.Context, tx *appstore.Tx, snexID int64, rec appstore.ReducedDatumExtra) error {
	have, exists, err := tx.FindReducedDatumExtra(ctx, transform.SpectrumExtrasKey, snexID)
	if err != nil {
		return err
	}
	if exists {
		rec.ID = have.ID
		return tx.UpdateReducedDatumExtra(ctx, rec)
	}
	_, err = tx.InsertReducedDatumExtra(ctx, rec)
	return err
}
