package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/shop-management/internal/model"
)

// CatalogRepo stores one catalog kind (categories, groups, suppliers or
// product types).  All four tables share the same columns, so one
// implementation parametrized by model.Kind serves them all.
type CatalogRepo struct {
	db   *sql.DB
	kind model.Kind
}

// NewCatalogRepo constructs a CatalogRepo for kind.
func NewCatalogRepo(db *sql.DB, kind model.Kind) *CatalogRepo {
	return &CatalogRepo{db: db, kind: kind}
}

// Kind returns the kind this repo stores.
func (r *CatalogRepo) Kind() model.Kind { return r.kind }

const catalogColumns = "id, entity_id, shop_id, name, slug, created_by, created_at, updated_by, updated_at"

func (r *CatalogRepo) scan(row interface{ Scan(...any) error }) (*model.Entity, error) {
	e := &model.Entity{Kind: r.kind}
	var updatedAt sql.NullTime
	if err := row.Scan(&e.ID, &e.EntityID, &e.ShopID, &e.Name, &e.Slug,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedBy, &updatedAt); err != nil {
		return nil, err
	}
	e.UpdatedAt = timePtr(updatedAt)
	return e, nil
}

// Create inserts e and fills its row id.  A name already used in the same
// shop yields ErrConflict from the (shop_id, name) unique key.
func (r *CatalogRepo) Create(ctx context.Context, e *model.Entity) error {
	q := "INSERT INTO " + r.kind.Table +
		" (entity_id, shop_id, name, slug, created_by, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, e.EntityID, e.ShopID, e.Name, e.Slug, e.CreatedBy, e.CreatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.Kind = r.kind
	return nil
}

// List returns one page of entities ordered by name plus the total count
// of matches.
func (r *CatalogRepo) List(ctx context.Context, lq ListQuery) ([]*model.Entity, int, error) {
	var w where
	w.scope(lq.ShopID)
	w.search(lq.Search, "name", "slug", "entity_id", "shop_id")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+r.kind.Table+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT " + catalogColumns + " FROM " + r.kind.Table + w.sql() + " ORDER BY name ASC, id ASC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(w.args, lq.Limit, lq.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*model.Entity, 0, lq.Limit)
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// FindByParam matches param against the public id, name or slug.  A
// non-empty shopID restricts the lookup to that shop.
func (r *CatalogRepo) FindByParam(ctx context.Context, param, shopID string) (*model.Entity, error) {
	var w where
	w.add("(entity_id = ? OR name = ? OR slug = ?)", param, strings.ToLower(param), strings.ToLower(param))
	w.scope(shopID)
	q := "SELECT " + catalogColumns + " FROM " + r.kind.Table + w.sql() + " LIMIT 1"
	e, err := r.scan(r.db.QueryRowContext(ctx, q, w.args...))
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// FindByID loads a row by its numeric id, optionally scoped to a shop.
func (r *CatalogRepo) FindByID(ctx context.Context, id uint64, shopID string) (*model.Entity, error) {
	var w where
	w.add("id = ?", id)
	w.scope(shopID)
	q := "SELECT " + catalogColumns + " FROM " + r.kind.Table + w.sql() + " LIMIT 1"
	e, err := r.scan(r.db.QueryRowContext(ctx, q, w.args...))
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// DeleteMany removes rows whose public id is in ids and returns how many
// were deleted.  A non-empty shopID limits deletion to that shop.
func (r *CatalogRepo) DeleteMany(ctx context.Context, ids []string, shopID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var w where
	w.add("entity_id IN ("+placeholders(len(ids))+")", toArgs(ids)...)
	w.scope(shopID)
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+r.kind.Table+w.sql(), w.args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Rename sets a new name and slug on row id and stamps the update.  It
// returns the number of affected rows; a name taken by another row in the
// same shop yields ErrConflict.
func (r *CatalogRepo) Rename(ctx context.Context, id uint64, name, slug, updatedBy string, at time.Time) (int64, error) {
	q := "UPDATE " + r.kind.Table + " SET name = ?, slug = ?, updated_by = ?, updated_at = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, name, slug, updatedBy, at, id)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
