package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/service"
)

type ProductService interface {
	Create(ctx context.Context, id auth.Identity, in service.ProductInput) (*model.Product, error)
	List(ctx context.Context, id auth.Identity, p service.PageRequest) (service.Page[*model.Product], error)
	GetOne(ctx context.Context, id auth.Identity, param string) (*model.Product, error)
	BulkDelete(ctx context.Context, id auth.Identity, rawIDs any) (int64, error)
	Update(ctx context.Context, id auth.Identity, rawID string, in service.ProductInput) error
}

type ProductHandler struct {
	products ProductService
}

func NewProductHandler(products ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

func (h *ProductHandler) Create(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var in service.ProductInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.products.Create(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Product created successfully", p)
}

func (h *ProductHandler) List(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	page, err := h.products.List(c.Request().Context(), id, pageRequest(c))
	if err != nil {
		return err
	}
	return paged(c, "Products retrieved successfully", page)
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	p, err := h.products.GetOne(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Product retrieved successfully", p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var body struct {
		ProductIDs any `json:"productIds"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	n, err := h.products.BulkDelete(c.Request().Context(), id, body.ProductIDs)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Product deleted", echo.Map{"deleted": n})
}

func (h *ProductHandler) Update(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var in service.ProductInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if err := h.products.Update(c.Request().Context(), id, c.Param("id"), in); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Product edited", nil)
}
