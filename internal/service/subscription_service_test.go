package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/config"
	"github.com/iliyamo/shop-management/internal/logger"
	"github.com/iliyamo/shop-management/internal/model"
)

var clock = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := clock.Add(d)
	return &t
}

func seedShop(store *memAccounts, shopID string, si model.SubscriptionInfo) {
	store.addShop(&model.Shop{
		ShopID:           shopID,
		ShopName:         "shop " + shopID,
		ShopSlug:         "shop-" + shopID,
		Address:          model.Address{DetailedShopAddress: "1 Road", Country: "bangladesh"},
		Currency:         "BDT",
		SubscriptionInfo: si,
	})
}

func testPlan(id, trial string, price float64) *model.SubscriptionPlan {
	return &model.SubscriptionPlan{PlanID: id, PlanName: "plan " + id, Price: price, Currency: PlanCurrency, TrialPeriod: trial}
}

func TestGateActiveSubscription(t *testing.T) {
	store := newMemAccounts()
	seedShop(store, "shop-1", model.SubscriptionInfo{ExpiresAt: at(36 * time.Hour)})
	gate := NewSubscriptionGate(store, 0, logger.Nop())
	gate.now = func() time.Time { return clock }

	days, err := gate.Verify(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.Equal(t, 2, days)
}

func TestGateNoSubscription(t *testing.T) {
	store := newMemAccounts()
	seedShop(store, "shop-1", model.SubscriptionInfo{})
	gate := NewSubscriptionGate(store, 0, logger.Nop())

	_, err := gate.Verify(context.Background(), "shop-1")
	assert.Equal(t, apperr.KindNoSubscription, apperr.KindOf(err))

	_, err = gate.Verify(context.Background(), "")
	assert.EqualError(t, err, "Shop_id mandatory")

	_, err = gate.Verify(context.Background(), "ghost")
	assert.EqualError(t, err, "Shop not found")
}

func TestGateExpiredMarksShop(t *testing.T) {
	store := newMemAccounts()
	store.expiredWrites = make(chan string, 1)
	seedShop(store, "shop-1", model.SubscriptionInfo{TrialRunning: true, ExpiresAt: at(-time.Minute)})
	gate := NewSubscriptionGate(store, 0, logger.Nop())
	gate.now = func() time.Time { return clock }

	// the request context is already gone; the write still happens
	ctx, cancel := context.WithCancel(context.Background())
	_, err := gate.Verify(ctx, "shop-1")
	cancel()
	require.Error(t, err)
	assert.Equal(t, apperr.KindSubscriptionRequired, apperr.KindOf(err))
	assert.Equal(t, 402, apperr.As(err).Status())

	select {
	case id := <-store.expiredWrites:
		assert.Equal(t, "shop-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("expiry was not persisted")
	}
	gate.Wait()

	s := store.shop("shop-1")
	assert.True(t, s.SubscriptionExpired)
	assert.True(t, s.SubscriptionInfo.TrialOver)
	assert.False(t, s.SubscriptionInfo.TrialRunning)
}

func newShops() (*ShopService, *memAccounts, *memPlans) {
	store := newMemAccounts()
	plans := &memPlans{}
	svc := NewShopService(store, plans, 0, logger.Nop())
	svc.now = func() time.Time { return clock }
	return svc, store, plans
}

func TestFreeTrialLifecycle(t *testing.T) {
	svc, store, plans := newShops()
	ctx := context.Background()
	seedShop(store, "shop-1", model.SubscriptionInfo{})
	require.NoError(t, plans.Create(ctx, testPlan("basic", "14 days", 10)))

	_, err := svc.FreeTrial(ctx, owner, " ")
	assert.EqualError(t, err, "Plan_id is required")

	_, err = svc.FreeTrial(ctx, owner, "missing")
	assert.EqualError(t, err, "Subscription plan not found")

	shop, err := svc.FreeTrial(ctx, owner, "basic")
	require.NoError(t, err)
	si := shop.SubscriptionInfo
	assert.True(t, si.TrialRunning)
	assert.Equal(t, "basic", si.SelectedPlanID)
	require.NotNil(t, si.ExpiresAt)
	assert.Equal(t, clock.AddDate(0, 0, 14), *si.ExpiresAt)
	assert.Equal(t, "u-1", store.shop("shop-1").UpdatedBy)

	_, err = svc.FreeTrial(ctx, owner, "basic")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.EqualError(t, err, "Your free trial is running. 14 days remaining")

	// the trial runs out and the gate flips it to over
	svc.now = func() time.Time { return clock.AddDate(0, 0, 15) }
	gate := NewSubscriptionGate(store, 0, logger.Nop())
	gate.now = svc.now
	_, err = gate.Verify(ctx, "shop-1")
	assert.Equal(t, apperr.KindSubscriptionRequired, apperr.KindOf(err))
	gate.Wait()

	_, err = svc.FreeTrial(ctx, owner, "basic")
	assert.Equal(t, apperr.KindSubscriptionRequired, apperr.KindOf(err))
	assert.EqualError(t, err, "You used your free trial. No trial available, need subscription")
}

func TestFreeTrialOverWithoutGate(t *testing.T) {
	svc, store, plans := newShops()
	ctx := context.Background()
	seedShop(store, "shop-1", model.SubscriptionInfo{})
	require.NoError(t, plans.Create(ctx, testPlan("basic", "14 days", 10)))

	_, err := svc.FreeTrial(ctx, owner, "basic")
	require.NoError(t, err)

	svc.now = func() time.Time { return clock.AddDate(0, 0, 20) }
	_, err = svc.FreeTrial(ctx, owner, "basic")
	assert.Equal(t, apperr.KindSubscriptionRequired, apperr.KindOf(err))
	assert.EqualError(t, err, "You used your free trial. No trial available, need subscription")

	got := store.shop("shop-1")
	assert.True(t, got.SubscriptionExpired)
	assert.True(t, got.SubscriptionInfo.TrialOver)
	assert.False(t, got.SubscriptionInfo.TrialRunning)
}

func TestShopGetIsScoped(t *testing.T) {
	svc, store, _ := newShops()
	ctx := context.Background()
	seedShop(store, "shop-1", model.SubscriptionInfo{})
	seedShop(store, "shop-2", model.SubscriptionInfo{})

	got, err := svc.Get(ctx, owner, "shop-shop-1")
	require.NoError(t, err)
	assert.Equal(t, "shop-1", got.ShopID)

	_, err = svc.Get(ctx, owner, "shop-2")
	assert.EqualError(t, err, "Shop not found")

	page, err := svc.List(ctx, admin, NewPageRequest("", "", ""))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestTrialDays(t *testing.T) {
	n, err := TrialDays("14 days")
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	n, err = TrialDays("7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	for _, bad := range []string{"", "two weeks", "0 days", "-3 days"} {
		_, err := TrialDays(bad)
		assert.Error(t, err, bad)
	}
}

func TestRemainingDaysRoundsUp(t *testing.T) {
	assert.Equal(t, 1, remainingDays(clock.Add(time.Hour), clock))
	assert.Equal(t, 1, remainingDays(clock.Add(24*time.Hour), clock))
	assert.Equal(t, 2, remainingDays(clock.Add(25*time.Hour), clock))
}

func validPlan() PlanInput {
	return PlanInput{
		PlanName:                "Starter",
		Description:             "Everything a small shop needs to begin",
		Duration:                "30 days",
		Price:                   9.99,
		Features:                "Unlimited products and categories",
		Limitations:             "One shop owner account",
		UpgradeDowngradeOptions: "Upgrade any time from settings",
		CancellationPolicy:      "Cancel any time",
		TrialPeriod:             "14 days",
		RenewalPolicy:           "Renews monthly",
		TermsAndConditions:      "Standard terms apply to all shops",
	}
}

func TestPlanCreate(t *testing.T) {
	plans := &memPlans{}
	svc := NewPlanService(plans, 0, logger.Nop())
	ctx := context.Background()

	p, err := svc.Create(ctx, admin, validPlan())
	require.NoError(t, err)
	assert.Equal(t, "starter", p.PlanName)
	assert.Equal(t, PlanCurrency, p.Currency)
	assert.Equal(t, "u-0", p.CreatedBy)

	_, err = svc.Create(ctx, admin, validPlan())
	assert.EqualError(t, err, "Plan name already exists")

	in := validPlan()
	in.RenewalPolicy = " "
	_, err = svc.Create(ctx, admin, in)
	assert.EqualError(t, err, "All fields are required")

	in = validPlan()
	in.PlanName = "Pro"
	in.Price = "-1"
	_, err = svc.Create(ctx, admin, in)
	assert.EqualError(t, err, "Plan price must be a positive number")

	in = validPlan()
	in.PlanName = "Pro"
	in.Description = "too short"
	_, err = svc.Create(ctx, admin, in)
	assert.EqualError(t, err, "Description must be at least 15 characters long")

	got, err := svc.Get(ctx, p.PlanID)
	require.NoError(t, err)
	assert.Equal(t, p.PlanID, got.PlanID)

	_, err = svc.Get(ctx, "nope")
	assert.EqualError(t, err, "Subscription plan not found")

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testPaymentConfig() config.PaymentConfig {
	return config.PaymentConfig{
		ExchangeRate: 120,
		Currency:     "BDT",
		Country:      "bangladesh",
		Accounts:     []string{"bkash:personal:01700000000", "broken", "nagad:personal:01800000000"},
	}
}

func newPayments() (*PaymentService, *memAccounts, *memPlans, *memPayments) {
	store := newMemAccounts()
	plans := &memPlans{}
	pays := &memPayments{}
	svc := NewPaymentService(testPaymentConfig(), store, plans, pays, 0, logger.Nop())
	svc.now = func() time.Time { return clock }
	return svc, store, plans, pays
}

func TestAmountRoundsToCents(t *testing.T) {
	assert.Equal(t, 1198.8, Amount(9.99, 120))
	assert.Equal(t, 0.0, Amount(0, 120))
	assert.Equal(t, 123.46, Amount(1.0287654, 120.01))
}

func TestPurchaseRecordsPayment(t *testing.T) {
	svc, store, plans, pays := newPayments()
	ctx := context.Background()
	seedShop(store, "shop-1", model.SubscriptionInfo{SelectedPlanID: "basic"})
	require.NoError(t, plans.Create(ctx, testPlan("basic", "14 days", 9.99)))

	// the selected plan wins over the requested one
	res, err := svc.Purchase(ctx, owner, "other")
	require.NoError(t, err)
	assert.Equal(t, 1198.8, res.Amount)
	assert.Equal(t, "shop-1 or rahim@shop.io", res.Reference)
	assert.Len(t, res.Accounts, 2)
	assert.Equal(t, "Send 1198.80 TK with Bkash or Nagad and put reference your shop-1 or rahim@shop.io", res.Message)

	require.Len(t, pays.rows, 1)
	p := pays.rows[0]
	assert.False(t, p.PaymentComplete)
	assert.Equal(t, "BDT", p.Currency)
	assert.Equal(t, "basic", p.SubscriptionPlan.PlanID)
	assert.Equal(t, clock, p.CreatedAt)

	mine, err := svc.Payments(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := svc.Payments(ctx, stranger)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestPurchaseRejections(t *testing.T) {
	svc, store, plans, pays := newPayments()
	ctx := context.Background()
	seedShop(store, "shop-1", model.SubscriptionInfo{})
	require.NoError(t, plans.Create(ctx, testPlan("basic", "14 days", 5)))

	_, err := svc.Purchase(ctx, owner, "")
	assert.EqualError(t, err, "Invalid plan id")

	_, err = svc.Purchase(ctx, owner, "gone")
	assert.EqualError(t, err, "Subscription plan not found for your previous selected plan")

	store.addShop(&model.Shop{ShopID: "shop-2", ShopName: "abroad", Address: model.Address{Country: "india"}})
	_, err = svc.Purchase(ctx, stranger, "basic")
	assert.EqualError(t, err, "Service not available right now outside bangladesh. We will work.")

	pays.err = errors.New("mongo down")
	_, err = svc.Purchase(ctx, owner, "basic")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, "Try again", apperr.As(err).Message)

	pays.err = nil
	anonymous := owner
	anonymous.UserID = ""
	_, err = svc.Purchase(ctx, anonymous, "basic")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "UserID", apperr.As(err).Field)
	assert.Empty(t, pays.rows)

	disabled := NewPaymentService(testPaymentConfig(), store, plans, nil, 0, logger.Nop())
	_, err = disabled.Purchase(ctx, owner, "basic")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	list, err := disabled.Payments(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPaginate(t *testing.T) {
	p := NewPageRequest("", "1", "10")
	pg := Paginate(p, 0)
	assert.Equal(t, 0, pg.TotalPages)
	assert.Nil(t, pg.PreviousPage)
	assert.Nil(t, pg.NextPage)

	pg = Paginate(NewPageRequest("", "3", "10"), 30)
	assert.Equal(t, 3, pg.TotalPages)
	require.NotNil(t, pg.PreviousPage)
	assert.Equal(t, 2, *pg.PreviousPage)
	assert.Nil(t, pg.NextPage)
}

func TestNewPageRequestDefaults(t *testing.T) {
	p := NewPageRequest("  milk ", "x", "")
	assert.Equal(t, PageRequest{Search: "milk", Page: 1, Limit: DefaultLimit}, p)
	assert.Equal(t, 0, p.Offset())

	p = NewPageRequest("", "4", "1000")
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 300, p.Offset())

	p = NewPageRequest("", "-2", "0")
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
}
