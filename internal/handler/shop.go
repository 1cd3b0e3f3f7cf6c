package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/service"
)

type ShopService interface {
	List(ctx context.Context, id auth.Identity, p service.PageRequest) (service.Page[*model.Shop], error)
	Get(ctx context.Context, id auth.Identity, param string) (*model.Shop, error)
	FreeTrial(ctx context.Context, id auth.Identity, planID string) (*model.Shop, error)
}

type ShopHandler struct {
	shops ShopService
}

func NewShopHandler(shops ShopService) *ShopHandler { return &ShopHandler{shops: shops} }

func (h *ShopHandler) List(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	page, err := h.shops.List(c.Request().Context(), id, pageRequest(c))
	if err != nil {
		return err
	}
	return paged(c, "Shops retrieved successfully", page)
}

func (h *ShopHandler) Get(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	shop, err := h.shops.Get(c.Request().Context(), id, c.Param("param"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Shop retrieved successfully", shop)
}

// FreeTrial starts the free trial of the plan in {"plan_id": "..."}.
func (h *ShopHandler) FreeTrial(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var body struct {
		PlanID string `json:"plan_id"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	shop, err := h.shops.FreeTrial(c.Request().Context(), id, body.PlanID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Free trial updated successful", shop)
}
