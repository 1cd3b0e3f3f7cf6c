package middleware

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"
)

// HeaderRemainingDays reports the days left on the caller's subscription.
const HeaderRemainingDays = "X-Subscription-Remaining-Days"

// Verifier checks a shop's subscription and returns the days left.
type Verifier interface {
	Verify(ctx context.Context, shopID string) (int, error)
}

// RequireSubscription lets a request through only while the caller's shop
// has an active subscription or trial.  Admins are not tied to a shop and
// skip the check.
func RequireSubscription(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := MustIdentity(c)
			if err != nil {
				return err
			}
			if id.IsAdmin() {
				return next(c)
			}
			days, err := v.Verify(c.Request().Context(), id.ShopID)
			if err != nil {
				return err
			}
			c.Set(RemainingDaysKey, days)
			c.Response().Header().Set(HeaderRemainingDays, strconv.Itoa(days))
			return next(c)
		}
	}
}
