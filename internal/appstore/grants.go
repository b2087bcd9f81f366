package appstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/snexsync/internal/schema"
)

// GroupIDByName resolves an application group by its unique name.
func (t *Tx) GroupIDByName(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	q := t.d.Builder().
		Select(t.col("id")).
		From(t.table(schema.AppGroup)).
		Where(sq.Eq{t.col("name"): name})
	found, err := t.getOne(ctx, &id, q)
	if err != nil {
		return 0, false, fmt.Errorf("group %q: %w", name, err)
	}
	return id, found, nil
}

// ContentTypeID resolves a content type by app label and model.
func (t *Tx) ContentTypeID(ctx context.Context, appLabel, model string) (int64, bool, error) {
	var id int64
	q := t.d.Builder().
		Select(t.col("id")).
		From(t.table(schema.AppContentType)).
		Where(sq.Eq{t.col("app_label"): appLabel, t.col("model"): model})
	found, err := t.getOne(ctx, &id, q)
	if err != nil {
		return 0, false, fmt.Errorf("content type %s.%s: %w", appLabel, model, err)
	}
	return id, found, nil
}

// PermissionID resolves a permission by codename within a content type.
func (t *Tx) PermissionID(ctx context.Context, codename string, contentTypeID int64) (int64, bool, error) {
	var id int64
	q := t.d.Builder().
		Select(t.col("id")).
		From(t.table(schema.AppPermission)).
		Where(sq.Eq{t.col("codename"): codename, t.col("content_type_id"): contentTypeID})
	found, err := t.getOne(ctx, &id, q)
	if err != nil {
		return 0, false, fmt.Errorf("permission %s: %w", codename, err)
	}
	return id, found, nil
}

// GrantExists reports whether an identical grant is already recorded.
func (t *Tx) GrantExists(ctx context.Context, g Grant) (bool, error) {
	ok, err := t.exists(ctx, schema.AppPermissionGrant, sq.Eq{
		t.col("object_pk"):       g.ObjectPK,
		t.col("content_type_id"): g.ContentTypeID,
		t.col("group_id"):        g.GroupID,
		t.col("permission_id"):   g.PermissionID,
	})
	if err != nil {
		return false, fmt.Errorf("grant exists: %w", err)
	}
	return ok, nil
}

// InsertGrant records a grant and returns its id. Callers check GrantExists
// first; the table carries no uniqueness constraint of its own.
func (t *Tx) InsertGrant(ctx context.Context, g Grant) (int64, error) {
	id, err := t.insertID(ctx, t.d.Builder().
		Insert(t.table(schema.AppPermissionGrant)).
		Columns(t.d.Columns("object_pk", "content_type_id", "group_id", "permission_id")...).
		Values(g.ObjectPK, g.ContentTypeID, g.GroupID, g.PermissionID))
	if err != nil {
		return 0, fmt.Errorf("insert grant for group %d on %s: %w", g.GroupID, g.ObjectPK, err)
	}
	return id, nil
}
