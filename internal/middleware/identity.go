package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/auth"
)

// Context keys set by this package.
const (
	identityKey      = "identity"
	RemainingDaysKey = "subscription_remaining_days"
)

// SetIdentity stores the authenticated caller.
func SetIdentity(c echo.Context, id auth.Identity) { c.Set(identityKey, id) }

// IdentityFrom returns the caller stored by Authenticate.
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(identityKey).(auth.Identity)
	return id, ok
}

// MustIdentity is IdentityFrom for handlers mounted behind Authenticate.
// A missing identity means the route was wired without it.
func MustIdentity(c echo.Context) (auth.Identity, error) {
	id, ok := IdentityFrom(c)
	if !ok {
		return auth.Identity{}, apperr.Unauthorized("Access token not found. Please Login First")
	}
	return id, nil
}

// RemainingDays returns the subscription days stored by
// RequireSubscription; ok is false for admins and ungated routes.
func RemainingDays(c echo.Context) (int, bool) {
	d, ok := c.Get(RemainingDaysKey).(int)
	return d, ok
}
