package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-management/internal/auth"
)

// Require runs the predicates against the authenticated caller in order;
// the first failure aborts the request.  It must be mounted after
// Authenticate.
func Require(preds ...auth.Predicate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := MustIdentity(c)
			if err != nil {
				return err
			}
			if err := auth.All(id, preds...); err != nil {
				return err
			}
			return next(c)
		}
	}
}
