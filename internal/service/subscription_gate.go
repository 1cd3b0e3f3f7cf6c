package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/telemetry"
)

// SubscriptionGate checks that a shop has an active subscription or trial.
type SubscriptionGate struct {
	base
	shops ShopStore
	wg    sync.WaitGroup
}

func NewSubscriptionGate(shops ShopStore, timeout time.Duration, log *logrus.Logger) *SubscriptionGate {
	return &SubscriptionGate{base: newBase(timeout, log), shops: shops}
}

// Verify returns the whole days left on the shop's subscription.  An
// expired subscription is flagged on the shop in the background and
// reported as SubscriptionRequired; the response does not wait for the
// write.
func (g *SubscriptionGate) Verify(ctx context.Context, shopID string) (_ int, err error) {
	ctx, span := telemetry.StartSpan(ctx, "subscription.verify", attribute.String("shop_id", shopID))
	defer func() { telemetry.EndSpan(span, err) }()

	if shopID == "" {
		return 0, apperr.NotFound("Shop_id mandatory")
	}
	qctx, cancel := g.withTimeout(ctx)
	defer cancel()
	shop, err := g.shops.FindByShopID(qctx, shopID)
	if err != nil {
		if isNotFound(err) {
			return 0, apperr.NotFound("Shop not found")
		}
		return 0, g.internal(err, "subscription.verify")
	}

	exp := shop.SubscriptionInfo.ExpiresAt
	if exp == nil {
		return 0, apperr.NoSubscription("No subscription found. Start a free trial or purchase a plan")
	}
	now := g.now()
	if !exp.After(now) {
		g.markExpired(shopID)
		return 0, apperr.SubscriptionRequired("Subscription expired")
	}
	return remainingDays(*exp, now), nil
}

// markExpired persists subscription_expired on a detached context so a
// cancelled request does not abort the write.
func (g *SubscriptionGate) markExpired(shopID string) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()
		if err := g.shops.MarkExpired(ctx, shopID); err != nil {
			g.log.WithError(err).WithField("shop_id", shopID).Error("mark subscription expired failed")
			return
		}
		g.log.WithField("shop_id", shopID).Info("subscription marked expired")
	}()
}

// Wait blocks until pending expiry writes finish.
func (g *SubscriptionGate) Wait() { g.wg.Wait() }
