package legacy

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/snexsync/internal/schema"
)

// Pending returns change-log entries for one logical table and action,
// oldest first. An empty slice is a normal result.
func (s *Store) Pending(ctx context.Context, logical string, action Action) ([]Entry, error) {
	return s.PendingAfter(ctx, logical, action, 0)
}

// PendingAfter is Pending restricted to entries with an id above after. It
// pages past entries that are still pending from an earlier page.
func (s *Store) PendingAfter(ctx context.Context, logical string, action Action, after int64) ([]Entry, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("pending %s: invalid action %q", logical, action)
	}
	if _, ok := s.tables[logical]; !ok || logical == schema.ChangeLog {
		return nil, fmt.Errorf("pending: %q is not a watched table", logical)
	}

	q := s.selectFrom(schema.ChangeLog).
		Where(sq.Eq{
			s.d.Quote("table_name"): s.tables.Name(logical),
			s.d.Quote("action"):     string(action),
		}).
		Where(sq.Gt{s.d.Quote("id"): after}).
		OrderBy(s.d.Quote("id") + " ASC")
	if s.batchSize > 0 {
		q = q.Limit(s.batchSize)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("pending %s/%s: build query: %w", logical, action, err)
	}

	entries := []Entry{}
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("pending %s/%s: %w", logical, action, err)
	}
	return entries, nil
}

// Retire deletes exactly one change-log entry by id. It must only be called
// after the entry's destination write has committed. Retiring an entry that
// is already gone is not an error.
func (s *Store) Retire(ctx context.Context, entry Entry) error {
	query, args, err := s.d.Builder().
		Delete(s.d.Quote(s.tables.Name(schema.ChangeLog))).
		Where(sq.Eq{s.d.Quote("id"): entry.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("retire entry %d: build query: %w", entry.ID, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("retire entry %d: %w", entry.ID, err)
	}
	return nil
}

// Backlog counts pending entries per (table, action). Tables are reported by
// their physical names, as written by the triggers.
func (s *Store) Backlog(ctx context.Context) ([]BacklogCount, error) {
	query, args, err := s.d.Builder().
		Select(
			s.d.Quote("table_name")+" AS table_name",
			s.d.Quote("action")+" AS action",
			"COUNT(*) AS n",
			"MIN("+s.d.Quote("id")+") AS oldest_id",
		).
		From(s.d.Quote(s.tables.Name(schema.ChangeLog))).
		GroupBy(s.d.Quote("table_name"), s.d.Quote("action")).
		OrderBy(s.d.Quote("table_name"), s.d.Quote("action")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("backlog: build query: %w", err)
	}

	counts := []BacklogCount{}
	if err := s.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("backlog: %w", err)
	}
	return counts, nil
}
