package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/config"
	"github.com/iliyamo/shop-management/internal/middleware"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/service"
	"github.com/iliyamo/shop-management/internal/utils"
)

// AccountService is what AuthHandler needs from the account flows.
type AccountService interface {
	Signup(ctx context.Context, in service.SignupInput) (string, error)
	Activate(ctx context.Context, token string) (*model.Shop, *model.User, error)
	Login(ctx context.Context, in service.LoginInput) (*service.Session, error)
	Refresh(ctx context.Context, refreshToken string) (utils.SignedToken, auth.Identity, error)
	ListUsers(ctx context.Context, id auth.Identity, p service.PageRequest) (service.Page[*model.User], error)
	GetUser(ctx context.Context, id auth.Identity, userID string) (*model.User, error)
	DeleteUser(ctx context.Context, id auth.Identity, userID string) error
}

// AuthHandler serves signup, activation, sessions and user administration.
type AuthHandler struct {
	accounts AccountService
	cookies  config.CookieConfig
}

func NewAuthHandler(accounts AccountService, cookies config.CookieConfig) *AuthHandler {
	return &AuthHandler{accounts: accounts, cookies: cookies}
}

const activatedHTML = `<!DOCTYPE html>
<html>
<head><title>User Activated</title></head>
<body>
<h1>User created successfully</h1>
<p>Now you can close this window</p>
</body>
</html>`

// Signup validates the account and mails an activation link.
func (h *AuthHandler) Signup(c echo.Context) error {
	var in service.SignupInput
	if err := bind(c, &in); err != nil {
		return err
	}
	email, err := h.accounts.Signup(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, fmt.Sprintf("Please go to your email at %s and complete registration process", email), nil)
}

// Activate creates the shop and its owner from an emailed token.
func (h *AuthHandler) Activate(c echo.Context) error {
	if _, _, err := h.accounts.Activate(c.Request().Context(), c.Param("token")); err != nil {
		return err
	}
	return c.HTML(http.StatusOK, activatedHTML)
}

// Login sets the access and refresh cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var in service.LoginInput
	if err := bind(c, &in); err != nil {
		return err
	}
	sess, err := h.accounts.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	c.SetCookie(h.cookie(middleware.AccessCookie, sess.Access.Token, time.Until(sess.Access.Exp)))
	c.SetCookie(h.cookie(middleware.RefreshCookie, sess.Refresh.Token, time.Until(sess.Refresh.Exp)))
	return ok(c, http.StatusOK, "Login successfully", sess.User)
}

// Logout clears both session cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.cookie(middleware.AccessCookie, "", -1))
	c.SetCookie(h.cookie(middleware.RefreshCookie, "", -1))
	return ok(c, http.StatusOK, "Logout successfully", nil)
}

// Refresh issues a new access cookie from the refresh cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ck, err := c.Cookie(middleware.RefreshCookie)
	if err != nil || strings.TrimSpace(ck.Value) == "" {
		return apperr.Unauthorized("Refresh token not found. Please login again")
	}
	tok, id, err := h.accounts.Refresh(c.Request().Context(), ck.Value)
	if err != nil {
		return err
	}
	c.SetCookie(h.cookie(middleware.AccessCookie, tok.Token, time.Until(tok.Exp)))
	return ok(c, http.StatusOK, "New access token generated", id)
}

// Me returns the caller's session identity.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "User retrieved successfully", id)
}

func (h *AuthHandler) ListUsers(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	page, err := h.accounts.ListUsers(c.Request().Context(), id, pageRequest(c))
	if err != nil {
		return err
	}
	return paged(c, "Users retrieved successfully", page)
}

func (h *AuthHandler) GetUser(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	u, err := h.accounts.GetUser(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "User retrieved successfully", u)
}

func (h *AuthHandler) DeleteUser(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.accounts.DeleteUser(c.Request().Context(), id, c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "User deleted successfully", nil)
}

// cookie builds a session cookie; a negative ttl expires it.
func (h *AuthHandler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: sameSite(h.cookies.SameSite),
	}
	if ttl < 0 {
		ck.MaxAge = -1
	} else {
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

func sameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteNoneMode
	}
}
