package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/config"
	"github.com/iliyamo/shop-management/internal/mail"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/telemetry"
	"github.com/iliyamo/shop-management/internal/utils"
	"github.com/iliyamo/shop-management/internal/validate"
)

// AccountConfig is the part of the configuration the account flows use.
type AccountConfig struct {
	JWT       config.JWTConfig
	ClientURL string
	Currency  string // currency stamped on new shops
}

// SignupInput is the signup body.  Address is kept raw so a non-object
// value can be reported as such.
type SignupInput struct {
	ShopName string `json:"shop_name"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
	Address  any    `json:"address"`
}

// LoginInput accepts either username or email.
type LoginInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the result of a successful login.
type Session struct {
	User    *model.User
	Access  utils.SignedToken
	Refresh utils.SignedToken
}

// pendingAccount is the activation token payload.  Nothing is stored
// until the token comes back.
type pendingAccount struct {
	ShopName string          `json:"shop_name"`
	Name     string          `json:"name"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Mobile   string          `json:"mobile"`
	Password string          `json:"password"` // bcrypt hash
	Address  model.Address   `json:"address"`
	Caps     auth.Capability `json:"caps"`
}

const minPasswordLen = 6

// AccountService implements signup, activation, login, token refresh and
// user administration.
type AccountService struct {
	base
	cfg      AccountConfig
	users    UserStore
	shops    ShopStore
	accounts AccountStore
	mailer   mail.Sender
}

func NewAccountService(cfg AccountConfig, users UserStore, shops ShopStore, accounts AccountStore, mailer mail.Sender, timeout time.Duration, log *logrus.Logger) *AccountService {
	return &AccountService{
		base:     newBase(timeout, log),
		cfg:      cfg,
		users:    users,
		shops:    shops,
		accounts: accounts,
		mailer:   mailer,
	}
}

// Signup validates in, issues an activation token and mails the
// activation link.  It returns the address the link was sent to.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (_ string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "account.signup")
	defer func() { telemetry.EndSpan(span, err) }()

	for _, r := range []struct{ v, msg string }{
		{in.ShopName, "Shop name is required"},
		{in.Name, "Name is required"},
		{in.Email, "Email is required"},
		{in.Mobile, "Mobile number is required"},
		{in.Password, "Password is required"},
	} {
		if err := validate.Required(r.v, r.msg); err != nil {
			return "", err
		}
	}
	addr, err := addressFrom(in.Address)
	if err != nil {
		return "", err
	}

	shopName, err := validate.String(in.ShopName, "Shop name", 3, 100)
	if err != nil {
		return "", err
	}
	name, err := validate.String(in.Name, "Name", 2, 100)
	if err != nil {
		return "", err
	}
	email := compactLower(in.Email)
	if err := validate.Email(email); err != nil {
		return "", err
	}
	username, _, _ := strings.Cut(email, "@")
	if err := validate.Mobile(in.Mobile); err != nil {
		return "", err
	}
	if len(in.Password) < minPasswordLen {
		return "", apperr.Validation("password", "Password must be at least 6 characters long")
	}

	qctx, cancel := s.withTimeout(ctx)
	defer cancel()
	taken, err := s.shops.NameExists(qctx, shopName)
	if err != nil {
		return "", s.internal(err, "account.signup")
	}
	if taken {
		return "", apperr.Conflict("Shop name already exists. Try something different")
	}
	taken, err = s.users.Exists(qctx, email, username)
	if err != nil {
		return "", s.internal(err, "account.signup")
	}
	if taken {
		return "", apperr.Conflict("Username or email already exists. Try something different")
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.JWT.BcryptCost)
	if err != nil {
		return "", apperr.Internal(err, "Internal server error")
	}
	token, err := utils.IssueToken(pendingAccount{
		ShopName: shopName,
		Name:     name,
		Username: username,
		Email:    email,
		Mobile:   strings.TrimSpace(in.Mobile),
		Password: hash,
		Address:  addr,
		Caps:     auth.CapShopOwner,
	}, s.cfg.JWT.ActivationKey, s.cfg.JWT.ActivationTTL)
	if err != nil {
		return "", apperr.Internal(err, "Internal server error")
	}

	msg := mail.Message{
		To:      email,
		Subject: "Account Creation Confirmation",
		HTML:    activationHTML(name, s.ActivationLink(token.Token), s.cfg.JWT.ActivationTTL),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.WithError(err).WithField("to", email).Error("activation mail failed")
		return "", apperr.Internal(err, "Failed to send verification email")
	}
	return email, nil
}

// ActivationLink is the URL mailed to a new account.
func (s *AccountService) ActivationLink(token string) string {
	return strings.TrimRight(s.cfg.ClientURL, "/") + "/v1/users/activate/" + token
}

func activationHTML(name, link string, ttl time.Duration) string {
	return fmt.Sprintf(`<h2>Hello %s!</h2>
<p>Please click here to <a href="%s">activate your account</a></p>
<p>This link will expire in %d minutes</p>`, html.EscapeString(name), link, int(ttl.Minutes()))
}

// Activate verifies an activation token and creates the shop together
// with its owner.  A second activation of the same token, or a race with
// another signup for the same shop name, email or username, is a Conflict.
func (s *AccountService) Activate(ctx context.Context, token string) (_ *model.Shop, _ *model.User, err error) {
	ctx, span := telemetry.StartSpan(ctx, "account.activate")
	defer func() { telemetry.EndSpan(span, err) }()

	if strings.TrimSpace(token) == "" {
		return nil, nil, apperr.NotFound("Token not found")
	}
	var p pendingAccount
	if err := utils.VerifyToken(token, s.cfg.JWT.ActivationKey, &p); err != nil {
		return nil, nil, err
	}
	if p.ShopName == "" || p.Email == "" || p.Username == "" {
		return nil, nil, apperr.Unauthorized("User validation failed")
	}

	now := s.now()
	shop := &model.Shop{
		ShopID:    utils.NewID(),
		ShopName:  p.ShopName,
		ShopSlug:  utils.Slugify(p.ShopName),
		Address:   p.Address,
		Currency:  s.cfg.Currency,
		CreatedBy: p.Username,
		CreatedAt: now,
	}
	user := &model.User{
		UserID:       utils.NewID(),
		ShopID:       shop.ShopID,
		ShopName:     shop.ShopName,
		Name:         p.Name,
		Username:     p.Username,
		Email:        p.Email,
		Mobile:       p.Mobile,
		PasswordHash: p.Password,
		Caps:         p.Caps,
		Address:      p.Address,
		CreatedBy:    p.Username,
		CreatedAt:    now,
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.accounts.CreateShopWithOwner(ctx, shop, user); err != nil {
		if isConflict(err) {
			return nil, nil, apperr.Conflict("User already exist with this Shop name or username or email. Please sign in")
		}
		return nil, nil, s.internal(err, "account.activate")
	}
	s.log.WithFields(logrus.Fields{"shop_id": shop.ShopID, "username": user.Username}).Info("account activated")
	return shop, user, nil
}

// Login checks credentials and issues an access/refresh token pair.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (_ *Session, err error) {
	ctx, span := telemetry.StartSpan(ctx, "account.login")
	defer func() { telemetry.EndSpan(span, err) }()

	username, email := compactLower(in.Username), compactLower(in.Email)
	if (username == "" && email == "") || in.Password == "" {
		return nil, apperr.Validation("", "Username or email and password is required")
	}
	if email != "" {
		if err := validate.Email(email); err != nil {
			return nil, apperr.Validation("email", "Invalid email address format")
		}
	}
	if len(in.Password) < minPasswordLen {
		return nil, apperr.Unauthorized("Password should be at least 6 characters")
	}

	qctx, cancel := s.withTimeout(ctx)
	defer cancel()
	u, err := s.findLogin(qctx, username, email)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.Validation("username", "Invalid username or email address")
		}
		return nil, s.internal(err, "account.login")
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return nil, apperr.Unauthorized("Invalid Password")
	}
	if err := auth.IsActive(u.Identity()); err != nil {
		return nil, err
	}

	sess := &Session{User: u}
	claims := u.Identity().Claims()
	if sess.Access, err = utils.IssueToken(claims, s.cfg.JWT.AccessKey, s.cfg.JWT.AccessTTL); err != nil {
		return nil, apperr.Internal(err, "Internal server error")
	}
	if sess.Refresh, err = utils.IssueToken(claims, s.cfg.JWT.RefreshKey, s.cfg.JWT.RefreshTTL); err != nil {
		return nil, apperr.Internal(err, "Internal server error")
	}
	span.SetAttributes(attribute.String("user_id", u.UserID))
	return sess, nil
}

// findLogin tries the username first, then the email.
func (s *AccountService) findLogin(ctx context.Context, username, email string) (*model.User, error) {
	if username != "" {
		u, err := s.users.FindByLogin(ctx, username)
		if err == nil || !isNotFound(err) || email == "" {
			return u, err
		}
	}
	return s.users.FindByLogin(ctx, email)
}

// Identify resolves an access token to the identity it carries.
func (s *AccountService) Identify(token string) (auth.Identity, error) {
	var c auth.Claims
	if err := utils.VerifyToken(token, s.cfg.JWT.AccessKey, &c); err != nil {
		return auth.Identity{}, err
	}
	return c.Identity(), nil
}

// Refresh issues a new access token for a valid refresh token.  The user
// is reloaded so the new token carries current flags; banned, deleted or
// removed users are rejected.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (utils.SignedToken, auth.Identity, error) {
	var c auth.Claims
	if err := utils.VerifyToken(refreshToken, s.cfg.JWT.RefreshKey, &c); err != nil {
		return utils.SignedToken{}, auth.Identity{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	u, err := s.users.FindByUserID(ctx, c.UserID, "")
	if err != nil {
		if isNotFound(err) {
			return utils.SignedToken{}, auth.Identity{}, apperr.Unauthorized("User not found. Please login again")
		}
		return utils.SignedToken{}, auth.Identity{}, s.internal(err, "account.refresh")
	}
	id := u.Identity()
	if err := auth.IsActive(id); err != nil {
		return utils.SignedToken{}, auth.Identity{}, err
	}
	tok, err := utils.IssueToken(id.Claims(), s.cfg.JWT.AccessKey, s.cfg.JWT.AccessTTL)
	if err != nil {
		return utils.SignedToken{}, auth.Identity{}, apperr.Internal(err, "Internal server error")
	}
	return tok, id, nil
}

// ListUsers pages through users; admins see every shop.
func (s *AccountService) ListUsers(ctx context.Context, id auth.Identity, p PageRequest) (Page[*model.User], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	items, total, err := s.users.List(ctx, p.query(scopeFor(id)))
	if err != nil {
		return Page[*model.User]{}, s.internal(err, "user.list")
	}
	return newPage(items, total, p), nil
}

// GetUser loads one user, scoped to the caller's shop for non-admins.
func (s *AccountService) GetUser(ctx context.Context, id auth.Identity, userID string) (*model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	u, err := s.users.FindByUserID(ctx, strings.TrimSpace(userID), scopeFor(id))
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, s.internal(err, "user.get")
	}
	return u, nil
}

// DeleteUser removes a user.  Admins may not delete themselves.
func (s *AccountService) DeleteUser(ctx context.Context, id auth.Identity, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == id.UserID {
		return apperr.Forbidden("You can't delete yourself")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.users.Delete(ctx, userID); err != nil {
		if isNotFound(err) {
			return apperr.NotFound("User not found")
		}
		return s.internal(err, "user.delete")
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "by": id.Username}).Info("user deleted")
	return nil
}

// addressFrom validates the raw signup address object.
func addressFrom(raw any) (model.Address, error) {
	if raw != nil {
		if err := validate.RequiredObject(raw, "Address should be an object"); err != nil {
			return model.Address{}, err
		}
	}
	var a model.Address
	switch t := raw.(type) {
	case map[string]any:
		a.DetailedShopAddress, _ = t["detailed_shop_address"].(string)
		a.Country, _ = t["country"].(string)
	case model.Address:
		a = t
	case *model.Address:
		if t != nil {
			a = *t
		}
	}
	if err := validate.Required(a.DetailedShopAddress, "Exact detailed shop address is required in address"); err != nil {
		return model.Address{}, err
	}
	if err := validate.Required(a.Country, "Country is required in address"); err != nil {
		return model.Address{}, err
	}
	a.DetailedShopAddress = strings.TrimSpace(a.DetailedShopAddress)
	a.Country = validate.Normalize(a.Country)
	return a, nil
}

// compactLower drops all whitespace and lowercases s.
func compactLower(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
