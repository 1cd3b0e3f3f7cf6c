package service

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/telemetry"
	"github.com/iliyamo/shop-management/internal/utils"
	"github.com/iliyamo/shop-management/internal/validate"
)

// CatalogService is the tenant-scoped CRUD engine for one catalog kind
// (category, group, supplier or product type).
type CatalogService struct {
	base
	store CatalogStore
	kind  model.Kind
}

func NewCatalogService(store CatalogStore, timeout time.Duration, log *logrus.Logger) *CatalogService {
	return &CatalogService{base: newBase(timeout, log), store: store, kind: store.Kind()}
}

// Kind returns the catalog kind this service manages.
func (s *CatalogService) Kind() model.Kind { return s.kind }

// Create validates name and inserts a new entity for the caller's shop.
func (s *CatalogService) Create(ctx context.Context, id auth.Identity, rawName any) (_ *model.Entity, err error) {
	ctx, span := telemetry.StartSpan(ctx, "catalog.create", attribute.String("kind", s.kind.Key))
	defer func() { telemetry.EndSpan(span, err) }()

	name, err := s.validName(rawName)
	if err != nil {
		return nil, err
	}
	e := &model.Entity{
		Kind:      s.kind,
		EntityID:  utils.NewID(),
		ShopID:    id.ShopID,
		Name:      name,
		Slug:      utils.Slugify(name),
		CreatedBy: id.Username,
		CreatedAt: s.now(),
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.Create(ctx, e); err != nil {
		if isConflict(err) {
			return nil, apperr.Conflict("%s already exists for this shop", s.kind.Label)
		}
		return nil, s.internal(err, s.kind.Key+".create")
	}
	return e, nil
}

// List returns one page; admins see every shop.
func (s *CatalogService) List(ctx context.Context, id auth.Identity, p PageRequest) (Page[*model.Entity], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	items, total, err := s.store.List(ctx, p.query(scopeFor(id)))
	if err != nil {
		return Page[*model.Entity]{}, s.internal(err, s.kind.Key+".list")
	}
	return newPage(items, total, p), nil
}

// GetOne looks param up by public id, name or slug.
func (s *CatalogService) GetOne(ctx context.Context, id auth.Identity, param string) (*model.Entity, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	e, err := s.store.FindByParam(ctx, strings.TrimSpace(param), scopeFor(id))
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("%s not found", s.kind.Label)
		}
		return nil, s.internal(err, s.kind.Key+".get")
	}
	return e, nil
}

// BulkDelete removes entities by public id.  rawIDs is the decoded request
// value and must be a JSON array.  Non-admins only delete their own rows.
func (s *CatalogService) BulkDelete(ctx context.Context, id auth.Identity, rawIDs any) (int64, error) {
	ids, err := IDList(rawIDs, s.kind.BulkKey)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, apperr.NotFound("Document not found for deletion")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.store.DeleteMany(ctx, ids, scopeFor(id))
	if err != nil {
		return 0, s.internal(err, s.kind.Key+".delete")
	}
	if n == 0 {
		return 0, apperr.NotFound("Document not found for deletion")
	}
	s.log.WithFields(logrus.Fields{"kind": s.kind.Key, "deleted": n, "by": id.Username}).Info("catalog entries deleted")
	return n, nil
}

// Update renames the entity with row id rawID.
func (s *CatalogService) Update(ctx context.Context, id auth.Identity, rawID string, rawName any) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "catalog.update", attribute.String("kind", s.kind.Key))
	defer func() { telemetry.EndSpan(span, err) }()

	rowID, err := ParseRowID(rawID)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.store.FindByID(ctx, rowID, scopeFor(id)); err != nil {
		if isNotFound(err) {
			return apperr.NotFound("Document not found")
		}
		return s.internal(err, s.kind.Key+".update")
	}

	name, err := s.validName(rawName)
	if err != nil {
		return err
	}
	n, err := s.store.Rename(ctx, rowID, name, utils.Slugify(name), id.Username, s.now())
	if err != nil {
		if isConflict(err) {
			return apperr.Conflict("A %s with this name already exists", strings.ToLower(s.kind.Label))
		}
		return s.internal(err, s.kind.Key+".update")
	}
	if n == 0 {
		return apperr.Internal(nil, "Failed to update the "+strings.ToLower(s.kind.Label))
	}
	return nil
}

func (s *CatalogService) validName(raw any) (string, error) {
	msg := s.kind.Label + " is required"
	if err := validate.Required(raw, msg); err != nil {
		return "", err
	}
	str, ok := raw.(string)
	if !ok {
		return "", apperr.Validation(s.kind.Key, msg)
	}
	return validate.String(str, s.kind.Label, s.kind.MinLen, s.kind.MaxLen)
}

// ParseRowID parses a storage row id from a path parameter.
func ParseRowID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("id", "Invalid id")
	}
	return id, nil
}

// IDList converts a decoded JSON value to a list of ids.  Anything but an
// array of strings fails with "<Key> must be an array".
func IDList(raw any, key string) ([]string, error) {
	bad := apperr.Validation(key, upperFirst(key)+" must be an array")
	switch t := raw.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			s, ok := v.(string)
			if !ok {
				return nil, bad
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, bad
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
