package perm

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/snexsync/internal/appstore"
)

// ObjectKind is the kind of application object a grant applies to.
type ObjectKind int

const (
	ObjectTarget ObjectKind = iota
	ObjectReducedDatum
)

type kindInfo struct {
	appLabel string
	model    string
	codename string
}

var kinds = map[ObjectKind]kindInfo{
	ObjectTarget:       {appLabel: "tom_targets", model: "target", codename: "view_target"},
	ObjectReducedDatum: {appLabel: "tom_dataproducts", model: "reduceddatum", codename: "view_reduceddatum"},
}

func (k ObjectKind) String() string {
	if info, ok := kinds[k]; ok {
		return info.model
	}
	return "ObjectKind(" + strconv.Itoa(int(k)) + ")"
}

// Object identifies the application row being granted.
type Object struct {
	Kind ObjectKind
	PK   int64
}

// GroupDirectory resolves legacy group codes to group names.
type GroupDirectory interface {
	GroupName(ctx context.Context, code uint64) (string, bool, error)
}

// GrantTx is the part of an application transaction the propagator writes
// through. *appstore.Tx satisfies it.
type GrantTx interface {
	GroupIDByName(ctx context.Context, name string) (int64, bool, error)
	ContentTypeID(ctx context.Context, appLabel, model string) (int64, bool, error)
	PermissionID(ctx context.Context, codename string, contentTypeID int64) (int64, bool, error)
	GrantExists(ctx context.Context, g appstore.Grant) (bool, error)
	InsertGrant(ctx context.Context, g appstore.Grant) (int64, error)
}

type resolved struct {
	contentTypeID int64
	permissionID  int64
}

// Propagator writes view grants for every group set in a legacy mask.
// It caches resolved ids and is meant to live for one run.
type Propagator struct {
	groups GroupDirectory
	logger *slog.Logger

	kinds    map[ObjectKind]resolved
	groupIDs *lru.Cache[string, int64]
}

// NewPropagator returns a Propagator resolving codes through groups.
func NewPropagator(groups GroupDirectory, logger *slog.Logger) (*Propagator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	groupIDs, err := lru.New[string, int64](256)
	if err != nil {
		return nil, fmt.Errorf("group id cache: %w", err)
	}
	return &Propagator{
		groups:   groups,
		logger:   logger,
		kinds:    make(map[ObjectKind]resolved, len(kinds)),
		groupIDs: groupIDs,
	}, nil
}

// Grant gives every group in mask view access to obj and returns the names
// of the groups newly granted. A grant that already exists is left as is, so
// replaying an entry never duplicates grants. Codes with no legacy group, and
// legacy groups with no application counterpart, are logged and skipped.
func (p *Propagator) Grant(ctx context.Context, tx GrantTx, mask GroupMask, obj Object) ([]string, error) {
	if mask == 0 {
		return nil, nil
	}
	ids, err := p.resolve(ctx, tx, obj.Kind)
	if err != nil {
		return nil, err
	}

	var granted []string
	for code := range mask.Bits() {
		name, ok, err := p.groups.GroupName(ctx, code)
		if err != nil {
			return granted, fmt.Errorf("resolve group code %d: %w", code, err)
		}
		if !ok {
			p.logger.Warn("unknown legacy group code", "code", code, "object", obj.Kind.String(), "pk", obj.PK)
			continue
		}

		groupID, ok, err := p.groupID(ctx, tx, name)
		if err != nil {
			return granted, err
		}
		if !ok {
			p.logger.Warn("legacy group missing from app store", "group", name, "code", code)
			continue
		}

		g := appstore.Grant{
			ObjectPK:      strconv.FormatInt(obj.PK, 10),
			ContentTypeID: ids.contentTypeID,
			GroupID:       groupID,
			PermissionID:  ids.permissionID,
		}
		exists, err := tx.GrantExists(ctx, g)
		if err != nil {
			return granted, err
		}
		if exists {
			continue
		}
		if _, err := tx.InsertGrant(ctx, g); err != nil {
			return granted, err
		}
		granted = append(granted, name)
	}
	return granted, nil
}

func (p *Propagator) resolve(ctx context.Context, tx GrantTx, kind ObjectKind) (resolved, error) {
	if r, ok := p.kinds[kind]; ok {
		return r, nil
	}
	info, ok := kinds[kind]
	if !ok {
		return resolved{}, fmt.Errorf("unknown object kind %d", int(kind))
	}

	ct, ok, err := tx.ContentTypeID(ctx, info.appLabel, info.model)
	if err != nil {
		return resolved{}, err
	}
	if !ok {
		return resolved{}, fmt.Errorf("content type %s.%s not found", info.appLabel, info.model)
	}
	permID, ok, err := tx.PermissionID(ctx, info.codename, ct)
	if err != nil {
		return resolved{}, err
	}
	if !ok {
		return resolved{}, fmt.Errorf("permission %s not found", info.codename)
	}

	r := resolved{contentTypeID: ct, permissionID: permID}
	p.kinds[kind] = r
	return r, nil
}

func (p *Propagator) groupID(ctx context.Context, tx GrantTx, name string) (int64, bool, error) {
	if id, ok := p.groupIDs.Get(name); ok {
		return id, true, nil
	}
	id, ok, err := tx.GroupIDByName(ctx, name)
	if err != nil || !ok {
		return 0, ok, err
	}
	p.groupIDs.Add(name, id)
	return id, true, nil
}
