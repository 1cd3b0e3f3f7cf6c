// Package service implements the shop-management use cases on top of the
// repository stores.  Services take small store interfaces so they can be
// exercised with in-memory fakes; every storage call runs under the
// configured timeout and every failure leaves as an *apperr.Error.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/logger"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/repository"
)

// DefaultTimeout bounds a single storage call when none is configured.
const DefaultTimeout = 5 * time.Second

// CatalogStore is implemented by repository.CatalogRepo.
type CatalogStore interface {
	Kind() model.Kind
	Create(ctx context.Context, e *model.Entity) error
	List(ctx context.Context, lq repository.ListQuery) ([]*model.Entity, int, error)
	FindByParam(ctx context.Context, param, shopID string) (*model.Entity, error)
	FindByID(ctx context.Context, id uint64, shopID string) (*model.Entity, error)
	DeleteMany(ctx context.Context, ids []string, shopID string) (int64, error)
	Rename(ctx context.Context, id uint64, name, slug, updatedBy string, at time.Time) (int64, error)
}

// ProductStore is implemented by repository.ProductRepo.
type ProductStore interface {
	Create(ctx context.Context, p *model.Product) error
	List(ctx context.Context, lq repository.ListQuery) ([]*model.Product, int, error)
	FindByParam(ctx context.Context, param, shopID string) (*model.Product, error)
	FindByID(ctx context.Context, id uint64, shopID string) (*model.Product, error)
	DeleteMany(ctx context.Context, ids []string, shopID string) (int64, error)
	Update(ctx context.Context, id uint64, changes []repository.ProductChange, updatedBy string, at time.Time) (int64, error)
}

// ShopStore is implemented by repository.ShopRepo.
type ShopStore interface {
	FindByShopID(ctx context.Context, shopID string) (*model.Shop, error)
	FindByParam(ctx context.Context, param, scopeShopID string) (*model.Shop, error)
	NameExists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, lq repository.ListQuery) ([]*model.Shop, int, error)
	MarkExpired(ctx context.Context, shopID string) error
	UpdateSubscription(ctx context.Context, shopID string, si model.SubscriptionInfo, updatedBy string, at time.Time) error
}

// UserStore is implemented by repository.UserRepo.
type UserStore interface {
	FindByLogin(ctx context.Context, login string) (*model.User, error)
	FindByUserID(ctx context.Context, userID, shopID string) (*model.User, error)
	Exists(ctx context.Context, email, username string) (bool, error)
	List(ctx context.Context, lq repository.ListQuery) ([]*model.User, int, error)
	Delete(ctx context.Context, userID string) error
}

// AccountStore is implemented by repository.AccountRepo.
type AccountStore interface {
	CreateShopWithOwner(ctx context.Context, shop *model.Shop, user *model.User) error
}

// PlanStore is implemented by repository.PlanRepo.
type PlanStore interface {
	Create(ctx context.Context, p *model.SubscriptionPlan) error
	List(ctx context.Context) ([]*model.SubscriptionPlan, error)
	FindByPlanID(ctx context.Context, planID string) (*model.SubscriptionPlan, error)
	FindByParam(ctx context.Context, param string) (*model.SubscriptionPlan, error)
}

// PaymentStore is implemented by repository.PaymentRepo.
type PaymentStore interface {
	Insert(ctx context.Context, p *model.Payment) error
	ListByShop(ctx context.Context, shopID string) ([]*model.Payment, error)
}

// base carries what every service needs besides its stores.
type base struct {
	timeout time.Duration
	log     *logrus.Logger
	now     func() time.Time
}

func newBase(timeout time.Duration, log *logrus.Logger) base {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return base{timeout: timeout, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (b base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

// internal logs an unexpected store failure and hides it from the client.
func (b base) internal(err error, op string) error {
	b.log.WithError(err).WithField("op", op).Error("storage failure")
	return apperr.Internal(err, "Internal server error")
}

// scopeFor returns the shop restriction for id: none for admins.
func scopeFor(id auth.Identity) string {
	if id.IsAdmin() {
		return ""
	}
	return id.ShopID
}

func isNotFound(err error) bool { return errors.Is(err, repository.ErrNotFound) }

func isConflict(err error) bool { return errors.Is(err, repository.ErrConflict) }
