package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/service"
)

// CatalogService is one tenant-scoped catalog kind.
type CatalogService interface {
	Kind() model.Kind
	Create(ctx context.Context, id auth.Identity, rawName any) (*model.Entity, error)
	List(ctx context.Context, id auth.Identity, p service.PageRequest) (service.Page[*model.Entity], error)
	GetOne(ctx context.Context, id auth.Identity, param string) (*model.Entity, error)
	BulkDelete(ctx context.Context, id auth.Identity, rawIDs any) (int64, error)
	Update(ctx context.Context, id auth.Identity, rawID string, rawName any) error
}

// CatalogHandler serves one catalog kind: categories, groups, suppliers
// or product types.  Request bodies carry the name under the kind's key,
// e.g. {"category": "..."}, and bulk deletes under its BulkKey.
type CatalogHandler struct {
	svc  CatalogService
	kind model.Kind
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc, kind: svc.Kind()}
}

func (h *CatalogHandler) Kind() model.Kind { return h.kind }

func (h *CatalogHandler) Create(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	body := map[string]any{}
	if err := bind(c, &body); err != nil {
		return err
	}
	e, err := h.svc.Create(c.Request().Context(), id, body[h.kind.Key])
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, h.kind.Label+" created successfully", e)
}

func (h *CatalogHandler) List(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	page, err := h.svc.List(c.Request().Context(), id, pageRequest(c))
	if err != nil {
		return err
	}
	return paged(c, h.kind.Plural+" retrieved successfully", page)
}

func (h *CatalogHandler) Get(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	e, err := h.svc.GetOne(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, h.kind.Label+" retrieved successfully", e)
}

func (h *CatalogHandler) Delete(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	body := map[string]any{}
	if err := bind(c, &body); err != nil {
		return err
	}
	n, err := h.svc.BulkDelete(c.Request().Context(), id, body[h.kind.BulkKey])
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Deleted successfully", echo.Map{"deleted": n})
}

func (h *CatalogHandler) Update(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	body := map[string]any{}
	if err := bind(c, &body); err != nil {
		return err
	}
	if err := h.svc.Update(c.Request().Context(), id, c.Param("id"), body[h.kind.Key]); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Updated successfully", nil)
}
