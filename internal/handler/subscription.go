package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/service"
)

type PlanService interface {
	Create(ctx context.Context, id auth.Identity, in service.PlanInput) (*model.SubscriptionPlan, error)
	List(ctx context.Context) ([]*model.SubscriptionPlan, error)
	Get(ctx context.Context, param string) (*model.SubscriptionPlan, error)
}

type PaymentService interface {
	Purchase(ctx context.Context, id auth.Identity, planID string) (*service.Purchase, error)
	Payments(ctx context.Context, id auth.Identity) ([]*model.Payment, error)
}

// Purger drops cached responses that a write made stale.
type Purger interface {
	Purge(ctx context.Context) error
}

// SubscriptionHandler serves the plan catalog and purchase requests.
type SubscriptionHandler struct {
	plans    PlanService
	payments PaymentService
	cache    Purger
	log      *logrus.Logger
}

func NewSubscriptionHandler(plans PlanService, payments PaymentService, cache Purger, log *logrus.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{plans: plans, payments: payments, cache: cache, log: log}
}

func (h *SubscriptionHandler) CreatePlan(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var in service.PlanInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.plans.Create(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	// a stale plan list expires on its own, so a failed purge is not fatal
	if err := h.cache.Purge(c.Request().Context()); err != nil {
		h.log.WithError(err).Warn("plan cache purge failed")
	}
	return ok(c, http.StatusCreated, "Subscription added", p)
}

func (h *SubscriptionHandler) ListPlans(c echo.Context) error {
	plans, err := h.plans.List(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Plans retrieved successfully", plans)
}

func (h *SubscriptionHandler) GetPlan(c echo.Context) error {
	p, err := h.plans.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Plan retrieved successfully", p)
}

// Purchase records a payment and returns the manual payment instructions.
func (h *SubscriptionHandler) Purchase(c echo.Context) error {
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
	res, err := h.payments.Purchase(c.Request().Context(), id, body.PlanID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, res.Message, res)
}

func (h *SubscriptionHandler) Payments(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	list, err := h.payments.Payments(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Payments retrieved successfully", list)
}
