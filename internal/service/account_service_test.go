package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/config"
	"github.com/iliyamo/shop-management/internal/logger"
	"github.com/iliyamo/shop-management/internal/mail"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/utils"
)

type outbox struct {
	mu   sync.Mutex
	msgs []mail.Message
	err  error
}

func (o *outbox) Send(_ context.Context, m mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, m)
	return nil
}

const testClientURL = "http://client.test"

func (o *outbox) lastToken(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.msgs)
	body := o.msgs[len(o.msgs)-1].HTML
	prefix := testClientURL + "/v1/users/activate/"
	i := strings.Index(body, prefix)
	require.GreaterOrEqual(t, i, 0)
	rest := body[i+len(prefix):]
	return rest[:strings.IndexByte(rest, '"')]
}

func testJWT() config.JWTConfig {
	return config.JWTConfig{
		AccessKey:     "access-key",
		RefreshKey:    "refresh-key",
		ActivationKey: "activation-key",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		ActivationTTL: 10 * time.Minute,
		BcryptCost:    4,
	}
}

func newAccounts() (*AccountService, *memAccounts, *outbox) {
	store := newMemAccounts()
	box := &outbox{}
	cfg := AccountConfig{JWT: testJWT(), ClientURL: testClientURL, Currency: "BDT"}
	return NewAccountService(cfg, userStore{store}, store, store, box, 0, logger.Nop()), store, box
}

func signup(shop, email string) SignupInput {
	return SignupInput{
		ShopName: shop,
		Name:     "Rahim Uddin",
		Email:    email,
		Mobile:   "+880 1712-345678",
		Password: "secret1",
		Address:  map[string]any{"detailed_shop_address": "12 Lake Road, Dhaka", "country": "Bangladesh"},
	}
}

// register runs signup and activation and returns the new owner.
func register(t *testing.T, svc *AccountService, box *outbox, shop, email string) (*model.Shop, *model.User) {
	t.Helper()
	_, err := svc.Signup(context.Background(), signup(shop, email))
	require.NoError(t, err)
	s, u, err := svc.Activate(context.Background(), box.lastToken(t))
	require.NoError(t, err)
	return s, u
}

func TestSignupMailsActivationLinkAndStoresNothing(t *testing.T) {
	svc, store, box := newAccounts()

	to, err := svc.Signup(context.Background(), signup("Acme Store", " Rahim@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, "rahim@example.com", to)
	require.Len(t, box.msgs, 1)
	assert.Equal(t, "Account Creation Confirmation", box.msgs[0].Subject)
	assert.Contains(t, box.msgs[0].HTML, "Hello rahim uddin!")
	assert.Empty(t, store.shops)
	assert.Empty(t, store.users)
}

func TestSignupValidation(t *testing.T) {
	svc, _, box := newAccounts()
	ctx := context.Background()

	in := signup("Acme", "a@b.io")
	in.Address = "dhaka"
	_, err := svc.Signup(ctx, in)
	assert.EqualError(t, err, "Address should be an object")

	in = signup("Acme", "a@b.io")
	in.Address = nil
	_, err = svc.Signup(ctx, in)
	assert.EqualError(t, err, "Exact detailed shop address is required in address")

	in = signup("Acme", "not-an-email")
	_, err = svc.Signup(ctx, in)
	assert.EqualError(t, err, "Invalid email address")

	in = signup("Acme", "a@b.io")
	in.Password = "123"
	_, err = svc.Signup(ctx, in)
	assert.EqualError(t, err, "Password must be at least 6 characters long")

	box.err = errors.New("smtp down")
	_, err = svc.Signup(ctx, signup("Acme", "a@b.io"))
	assert.EqualError(t, err, "Failed to send verification email: smtp down")
}

func TestActivateCreatesShopAndOwner(t *testing.T) {
	svc, store, box := newAccounts()
	shop, user := register(t, svc, box, "Acme Store", "rahim@example.com")

	assert.Equal(t, "acme store", shop.ShopName)
	assert.Equal(t, "acme-store", shop.ShopSlug)
	assert.Equal(t, "bangladesh", shop.Address.Country)
	assert.Equal(t, "BDT", shop.Currency)
	assert.Equal(t, shop.ShopID, user.ShopID)
	assert.Equal(t, "rahim", user.Username)
	assert.True(t, user.Identity().IsShopOwner())
	assert.False(t, user.Identity().IsAdmin())
	assert.True(t, utils.VerifyPassword(user.PasswordHash, "secret1"))
	assert.Len(t, store.shops, 1)

	// the same token cannot be used twice
	_, _, err := svc.Activate(context.Background(), box.lastToken(t))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestShopNameConflict(t *testing.T) {
	svc, _, box := newAccounts()
	register(t, svc, box, "Acme", "first@example.com")

	// pre-check at signup
	_, err := svc.Signup(context.Background(), signup("Acme", "second@example.com"))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestConcurrentActivationsOfSameShopName(t *testing.T) {
	svc, store, box := newAccounts()
	ctx := context.Background()

	// both signups pass the pre-check before either activates
	_, err := svc.Signup(ctx, signup("Acme", "first@example.com"))
	require.NoError(t, err)
	first := box.lastToken(t)
	_, err = svc.Signup(ctx, signup("Acme", "second@example.com"))
	require.NoError(t, err)
	second := box.lastToken(t)

	_, _, err = svc.Activate(ctx, first)
	require.NoError(t, err)
	_, _, err = svc.Activate(ctx, second)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Len(t, store.shops, 1)
}

func TestActivateRejectsBadToken(t *testing.T) {
	svc, _, _ := newAccounts()
	_, _, err := svc.Activate(context.Background(), "garbage")
	assert.True(t, errors.Is(err, &apperr.Error{Kind: apperr.KindUnauthorized, Reason: apperr.ReasonTokenInvalid}))

	_, _, err = svc.Activate(context.Background(), "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestLogin(t *testing.T) {
	svc, _, box := newAccounts()
	_, user := register(t, svc, box, "Acme", "rahim@example.com")
	ctx := context.Background()

	sess, err := svc.Login(ctx, LoginInput{Username: "RAHIM", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.UserID, sess.User.UserID)

	id, err := svc.Identify(sess.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, user.Identity(), id)

	// the refresh token is signed with a different key
	_, err = svc.Identify(sess.Refresh.Token)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = svc.Login(ctx, LoginInput{Email: "rahim@example.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	svc, store, box := newAccounts()
	register(t, svc, box, "Acme", "rahim@example.com")
	ctx := context.Background()

	cases := []struct {
		name string
		in   LoginInput
		kind apperr.Kind
		msg  string
	}{
		{"missing", LoginInput{Password: "secret1"}, apperr.KindValidation, "Username or email and password is required"},
		{"bad email", LoginInput{Email: "nope", Password: "secret1"}, apperr.KindValidation, "Invalid email address format"},
		{"short password", LoginInput{Username: "rahim", Password: "123"}, apperr.KindUnauthorized, "Password should be at least 6 characters"},
		{"unknown user", LoginInput{Username: "ghost", Password: "secret1"}, apperr.KindValidation, "Invalid username or email address"},
		{"wrong password", LoginInput{Username: "rahim", Password: "secret2"}, apperr.KindUnauthorized, "Invalid Password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.EqualError(t, err, tc.msg)
		})
	}

	store.setUser("rahim", func(u *model.User) { u.Caps |= auth.CapBanned })
	_, err := svc.Login(ctx, LoginInput{Username: "rahim", Password: "secret1"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.EqualError(t, err, auth.MsgBanned)

	store.setUser("rahim", func(u *model.User) { u.Caps = auth.CapShopOwner | auth.CapDeleted })
	_, err = svc.Login(ctx, LoginInput{Username: "rahim", Password: "secret1"})
	assert.EqualError(t, err, auth.MsgDeleted)
}

func TestRefreshReloadsUser(t *testing.T) {
	svc, store, box := newAccounts()
	register(t, svc, box, "Acme", "rahim@example.com")
	ctx := context.Background()

	sess, err := svc.Login(ctx, LoginInput{Username: "rahim", Password: "secret1"})
	require.NoError(t, err)

	// promoted after login: the new access token carries the new flag
	store.setUser("rahim", func(u *model.User) { u.Caps |= auth.CapShopAdmin })
	tok, id, err := svc.Refresh(ctx, sess.Refresh.Token)
	require.NoError(t, err)
	assert.True(t, id.IsShopAdmin())
	got, err := svc.Identify(tok.Token)
	require.NoError(t, err)
	assert.True(t, got.IsShopAdmin())

	// banned after login: refresh is refused
	store.setUser("rahim", func(u *model.User) { u.Caps |= auth.CapBanned })
	_, _, err = svc.Refresh(ctx, sess.Refresh.Token)
	assert.EqualError(t, err, auth.MsgBanned)

	_, _, err = svc.Refresh(ctx, sess.Access.Token)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestUserAdministration(t *testing.T) {
	svc, _, box := newAccounts()
	_, u1 := register(t, svc, box, "Acme", "rahim@example.com")
	_, u2 := register(t, svc, box, "Bazaar", "karim@example.com")
	ctx := context.Background()
	ownerID := u1.Identity()

	page, err := svc.ListUsers(ctx, ownerID, NewPageRequest("", "", ""))
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	page, err = svc.ListUsers(ctx, admin, NewPageRequest("", "", ""))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	_, err = svc.GetUser(ctx, ownerID, u2.UserID)
	assert.EqualError(t, err, "User not found")

	require.NoError(t, svc.DeleteUser(ctx, admin, u2.UserID))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(svc.DeleteUser(ctx, admin, u2.UserID)))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(svc.DeleteUser(ctx, admin, admin.UserID)))
}
