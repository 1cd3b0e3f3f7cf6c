package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/config"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/telemetry"
	"github.com/iliyamo/shop-management/internal/validate"
)

// Purchase is the outcome of a purchase request: the stored payment and
// the instructions for paying it manually.
type Purchase struct {
	Payment   *model.Payment         `json:"payment"`
	Amount    float64                `json:"amount"`
	Reference string                 `json:"reference"`
	Accounts  []model.PaymentAccount `json:"account"`
	Message   string                 `json:"-"`
}

// PaymentService records purchase attempts.  Payments are only created
// here; completion happens outside this service.
type PaymentService struct {
	base
	cfg      config.PaymentConfig
	shops    ShopStore
	plans    PlanStore
	payments PaymentStore // nil when the ledger is not configured
}

func NewPaymentService(cfg config.PaymentConfig, shops ShopStore, plans PlanStore, payments PaymentStore, timeout time.Duration, log *logrus.Logger) *PaymentService {
	return &PaymentService{base: newBase(timeout, log), cfg: cfg, shops: shops, plans: plans, payments: payments}
}

// Purchase records a payment for the shop's selected plan, or for planID
// when the shop has not selected one yet.
func (s *PaymentService) Purchase(ctx context.Context, id auth.Identity, planID string) (_ *Purchase, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.purchase", attribute.String("shop_id", id.ShopID))
	defer func() { telemetry.EndSpan(span, err) }()

	if s.payments == nil {
		return nil, apperr.Internal(nil, "Payments are not available right now")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	shop, err := s.shops.FindByShopID(ctx, id.ShopID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Shop not found")
		}
		return nil, s.internal(err, "payment.purchase")
	}

	ref := shop.SubscriptionInfo.SelectedPlanID
	if ref == "" {
		ref = strings.TrimSpace(planID)
		if ref == "" {
			return nil, apperr.Validation("plan_id", "Invalid plan id")
		}
	}
	plan, err := s.plans.FindByPlanID(ctx, ref)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Subscription plan not found for your previous selected plan")
		}
		return nil, s.internal(err, "payment.purchase")
	}
	if !strings.EqualFold(shop.Address.Country, s.cfg.Country) {
		return nil, apperr.Validation("country", fmt.Sprintf("Service not available right now outside %s. We will work.", s.cfg.Country))
	}

	amount := Amount(plan.Price, s.cfg.ExchangeRate)
	reference := id.ShopID + " or " + id.Email
	currency := shop.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	pay := &model.Payment{
		Amount:           amount,
		Currency:         currency,
		ShopID:           id.ShopID,
		UserID:           id.UserID,
		UserEmail:        id.Email,
		UserPhone:        id.Mobile,
		SubscriptionPlan: plan.Snapshot(),
		Reference:        reference,
		CreatedAt:        s.now(),
	}
	if err := validate.Struct(pay); err != nil {
		return nil, err
	}
	if err := s.payments.Insert(ctx, pay); err != nil {
		s.log.WithError(err).WithField("shop_id", id.ShopID).Error("payment insert failed")
		return nil, apperr.Internal(err, "Try again")
	}

	return &Purchase{
		Payment:   pay,
		Amount:    amount,
		Reference: reference,
		Accounts:  s.cfg.ReceivingAccounts(),
		Message:   fmt.Sprintf("Send %.2f TK with Bkash or Nagad and put reference your %s", amount, reference),
	}, nil
}

// Payments lists payments, newest first; admins see every shop.
func (s *PaymentService) Payments(ctx context.Context, id auth.Identity) ([]*model.Payment, error) {
	if s.payments == nil {
		return []*model.Payment{}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	out, err := s.payments.ListByShop(ctx, scopeFor(id))
	if err != nil {
		return nil, s.internal(err, "payment.list")
	}
	return out, nil
}

// Amount converts a plan price to the local currency, rounded to cents.
func Amount(price, rate float64) float64 {
	return math.Round(price*rate*100) / 100
}
