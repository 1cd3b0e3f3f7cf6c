package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/auth"
)

// Cookie names carrying the session tokens.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// Identifier resolves an access token to the caller it was issued for.
type Identifier interface {
	Identify(token string) (auth.Identity, error)
}

// Authenticate resolves the access token and stores the caller's identity
// in the context.  The token is read from the accessToken cookie, or from
// an Authorization Bearer header for non-browser clients.  Banned and
// deleted users are rejected even while their token is still valid.
func Authenticate(ids Identifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := accessToken(c)
			if raw == "" {
				return apperr.Unauthorized("Access token not found. Please Login First")
			}
			id, err := ids.Identify(raw)
			if err != nil {
				return err
			}
			if err := auth.IsActive(id); err != nil {
				return err
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// RequireLoggedOut rejects callers that already hold a valid access
// token.  A stale or forged cookie does not count as logged in.
func RequireLoggedOut(ids Identifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := accessToken(c); raw != "" {
				if _, err := ids.Identify(raw); err == nil {
					return apperr.Validation("", "User already logged in")
				}
			}
			return next(c)
		}
	}
}

func accessToken(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
