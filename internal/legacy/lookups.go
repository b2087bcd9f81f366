package legacy

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultLookupCacheSize bounds each lookup cache.
const DefaultLookupCacheSize = 4096

// Lookups caches reference data read while applying one run's entries.
// A fresh Lookups is built per run so renamed groups and classifications are
// picked up by the next run.
type Lookups struct {
	store *Store

	classifications *lru.Cache[int64, string]
	primaryNames    *lru.Cache[int64, string]

	groupsOnce sync.Once
	groups     map[int64]string
	groupsErr  error
}

// NewLookups returns empty caches bound to s. size <= 0 uses
// DefaultLookupCacheSize.
func NewLookups(s *Store, size int) (*Lookups, error) {
	if size <= 0 {
		size = DefaultLookupCacheSize
	}
	classifications, err := lru.New[int64, string](size)
	if err != nil {
		return nil, fmt.Errorf("classification cache: %w", err)
	}
	primaryNames, err := lru.New[int64, string](size)
	if err != nil {
		return nil, fmt.Errorf("primary name cache: %w", err)
	}
	return &Lookups{store: s, classifications: classifications, primaryNames: primaryNames}, nil
}

// ClassificationName resolves a legacy classification id to its name.
func (l *Lookups) ClassificationName(ctx context.Context, id int64) (string, bool, error) {
	if name, ok := l.classifications.Get(id); ok {
		return name, true, nil
	}
	row, found, err := l.store.FetchClassification(ctx, id)
	if err != nil || !found {
		return "", found, err
	}
	l.classifications.Add(id, row.Name)
	return row.Name, true, nil
}

// PrimaryName returns the oldest name of a legacy target.
func (l *Lookups) PrimaryName(ctx context.Context, targetID int64) (string, bool, error) {
	if name, ok := l.primaryNames.Get(targetID); ok {
		return name, true, nil
	}
	name, found, err := l.store.PrimaryName(ctx, targetID)
	if err != nil || !found {
		return "", found, err
	}
	l.primaryNames.Add(targetID, name)
	return name, true, nil
}

// GroupName resolves a single-bit group code to the legacy group name. The
// groups table is read once per Lookups.
func (l *Lookups) GroupName(ctx context.Context, code uint64) (string, bool, error) {
	l.groupsOnce.Do(func() {
		groups, err := l.store.Groups(ctx)
		if err != nil {
			l.groupsErr = err
			return
		}
		l.groups = make(map[int64]string, len(groups))
		for _, g := range groups {
			l.groups[g.IDCode] = g.Name
		}
	})
	if l.groupsErr != nil {
		return "", false, l.groupsErr
	}
	name, ok := l.groups[int64(code)]
	return name, ok, nil
}
