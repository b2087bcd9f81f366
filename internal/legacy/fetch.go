package legacy

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/snexsync/internal/schema"
)

// The Fetch methods materialize the current snapshot of one legacy row.
// found=false means the row no longer exists: expected for deletes, and a
// lost race with a later delete for inserts and updates. Neither is an error.

// FetchTarget returns the current targets row.
func (s *Store) FetchTarget(ctx context.Context, id int64) (Target, bool, error) {
	var row Target
	found, err := s.getOne(ctx, &row, s.byID(schema.Targets, id))
	if err != nil {
		return Target{}, false, fmt.Errorf("fetch target %d: %w", id, err)
	}
	return row, found, nil
}

// FetchTargetName returns the current targetnames row.
func (s *Store) FetchTargetName(ctx context.Context, id int64) (TargetName, bool, error) {
	var row TargetName
	found, err := s.getOne(ctx, &row, s.byID(schema.TargetNames, id))
	if err != nil {
		return TargetName{}, false, fmt.Errorf("fetch target name %d: %w", id, err)
	}
	return row, found, nil
}

// FetchPhotometry returns the current photometry row.
func (s *Store) FetchPhotometry(ctx context.Context, id int64) (Photometry, bool, error) {
	var row Photometry
	found, err := s.getOne(ctx, &row, s.byID(schema.Photometry, id))
	if err != nil {
		return Photometry{}, false, fmt.Errorf("fetch photometry %d: %w", id, err)
	}
	return row, found, nil
}

// FetchSpectrum returns the current spectra row.
func (s *Store) FetchSpectrum(ctx context.Context, id int64) (Spectrum, bool, error) {
	var row Spectrum
	found, err := s.getOne(ctx, &row, s.byID(schema.Spectra, id))
	if err != nil {
		return Spectrum{}, false, fmt.Errorf("fetch spectrum %d: %w", id, err)
	}
	return row, found, nil
}

// FetchClassification returns a classifications row.
func (s *Store) FetchClassification(ctx context.Context, id int64) (Classification, bool, error) {
	var row Classification
	found, err := s.getOne(ctx, &row, s.byID(schema.Classifications, id))
	if err != nil {
		return Classification{}, false, fmt.Errorf("fetch classification %d: %w", id, err)
	}
	return row, found, nil
}

// PrimaryName returns the oldest name recorded for a target.
func (s *Store) PrimaryName(ctx context.Context, targetID int64) (string, bool, error) {
	var row TargetName
	q := s.selectFrom(schema.TargetNames).
		Where(sq.Eq{s.d.Quote("targetid"): targetID}).
		OrderBy(s.d.Quote("id") + " ASC").
		Limit(1)
	found, err := s.getOne(ctx, &row, q)
	if err != nil {
		return "", false, fmt.Errorf("primary name of target %d: %w", targetID, err)
	}
	return row.Name, found, nil
}

// Groups returns every legacy group.
func (s *Store) Groups(ctx context.Context) ([]Group, error) {
	query, args, err := s.selectFrom(schema.Groups).OrderBy(s.d.Quote("idcode") + " ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("groups: build query: %w", err)
	}
	groups := []Group{}
	if err := s.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("groups: %w", err)
	}
	return groups, nil
}

func (s *Store) byID(logical string, id int64) sq.SelectBuilder {
	return s.selectFrom(logical).Where(sq.Eq{s.d.Quote("id"): id})
}
