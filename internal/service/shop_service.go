package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/validate"
)

// ShopService lists shops and manages free trials.
type ShopService struct {
	base
	shops ShopStore
	plans PlanStore
}

func NewShopService(shops ShopStore, plans PlanStore, timeout time.Duration, log *logrus.Logger) *ShopService {
	return &ShopService{base: newBase(timeout, log), shops: shops, plans: plans}
}

// List pages through shops ordered by name.
func (s *ShopService) List(ctx context.Context, id auth.Identity, p PageRequest) (Page[*model.Shop], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	items, total, err := s.shops.List(ctx, p.query(scopeFor(id)))
	if err != nil {
		return Page[*model.Shop]{}, s.internal(err, "shop.list")
	}
	return newPage(items, total, p), nil
}

// Get looks a shop up by shop id, name or slug.  Non-admins only see
// their own shop.
func (s *ShopService) Get(ctx context.Context, id auth.Identity, param string) (*model.Shop, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	shop, err := s.shops.FindByParam(ctx, strings.TrimSpace(param), scopeFor(id))
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Shop not found")
		}
		return nil, s.internal(err, "shop.get")
	}
	return shop, nil
}

// FreeTrial starts the trial of planID for the caller's shop.  A shop gets
// one trial: a running trial is reported with its remaining days, a used
// one requires a subscription.
func (s *ShopService) FreeTrial(ctx context.Context, id auth.Identity, planID string) (*model.Shop, error) {
	planID = strings.TrimSpace(planID)
	if err := validate.Required(planID, "Plan_id is required"); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	shop, err := s.shops.FindByShopID(ctx, id.ShopID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Shop not found")
		}
		return nil, s.internal(err, "shop.free_trial")
	}

	now := s.now()
	si := shop.SubscriptionInfo
	if si.TrialRunning && si.ExpiresAt != nil && !si.ExpiresAt.After(now) {
		// ran out before any gated request flagged it
		if err := s.shops.MarkExpired(ctx, shop.ShopID); err != nil {
			s.log.WithError(err).WithField("shop_id", shop.ShopID).Warn("mark expired failed")
		}
		si.TrialRunning, si.TrialOver = false, true
	}
	if si.TrialRunning {
		days := 0
		if si.ExpiresAt != nil {
			days = remainingDays(*si.ExpiresAt, now)
		}
		return nil, apperr.Validation("plan_id", fmt.Sprintf("Your free trial is running. %d days remaining", days))
	}
	if si.TrialOver {
		return nil, apperr.SubscriptionRequired("You used your free trial. No trial available, need subscription")
	}

	plan, err := s.plans.FindByPlanID(ctx, planID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Subscription plan not found")
		}
		return nil, s.internal(err, "shop.free_trial")
	}
	days, err := TrialDays(plan.TrialPeriod)
	if err != nil {
		return nil, err
	}

	expires := now.AddDate(0, 0, days)
	si.SelectedPlanID = plan.PlanID
	si.TrialRunning = true
	si.TrialStartAt = &now
	si.ExpiresAt = &expires
	if err := s.shops.UpdateSubscription(ctx, shop.ShopID, si, id.UserID, now); err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Shop not found")
		}
		return nil, s.internal(err, "shop.free_trial")
	}
	shop.SubscriptionInfo = si
	shop.SubscriptionExpired = false
	s.log.WithFields(logrus.Fields{"shop_id": shop.ShopID, "plan_id": plan.PlanID, "days": days}).Info("free trial started")
	return shop, nil
}

// TrialDays reads the leading day count of a plan's trial period, e.g.
// "14 days".
func TrialDays(period string) (int, error) {
	fields := strings.Fields(period)
	if len(fields) == 0 {
		return 0, apperr.Validation("trial_period", "Invalid trial period")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, apperr.Validation("trial_period", "Invalid trial period")
	}
	return n, nil
}

// remainingDays is ceil((expires-now) / 24h).
func remainingDays(expires, now time.Time) int {
	return int(math.Ceil(expires.Sub(now).Hours() / 24))
}
