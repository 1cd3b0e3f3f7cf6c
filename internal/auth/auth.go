// Package auth models the authenticated caller.  A session token carries
// Claims; middleware turns them into an Identity whose role and status
// flags live in a Capability bit set.  Authorization checks are pure
// predicates over an Identity so every role combination can be tested
// without HTTP.
package auth

import (
	"encoding/json"
	"strings"

	"github.com/iliyamo/shop-management/internal/apperr"
)

// Capability is a bit set of role and status flags.
type Capability uint8

const (
	CapAdmin Capability = 1 << iota
	CapShopOwner
	CapShopAdmin
	CapBanned
	CapDeleted
)

// AllCapabilities is the union of every defined flag.
const AllCapabilities = CapAdmin | CapShopOwner | CapShopAdmin | CapBanned | CapDeleted

var capNames = []struct {
	c    Capability
	name string
}{
	{CapAdmin, "admin"},
	{CapShopOwner, "shop_owner"},
	{CapShopAdmin, "shop_admin"},
	{CapBanned, "banned_user"},
	{CapDeleted, "deleted_user"},
}

// Has reports whether every flag in c2 is set.
func (c Capability) Has(c2 Capability) bool { return c&c2 == c2 }

func (c Capability) String() string {
	var parts []string
	for _, n := range capNames {
		if c.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Identity is the caller resolved from an access token.
type Identity struct {
	ShopID   string
	ShopName string
	UserID   string
	Username string
	Email    string
	Mobile   string
	Caps     Capability
}

func (id Identity) IsAdmin() bool     { return id.Caps.Has(CapAdmin) }
func (id Identity) IsShopOwner() bool { return id.Caps.Has(CapShopOwner) }
func (id Identity) IsShopAdmin() bool { return id.Caps.Has(CapShopAdmin) }
func (id Identity) IsAuthority() bool { return id.IsShopOwner() || id.IsShopAdmin() }
func (id Identity) IsBanned() bool    { return id.Caps.Has(CapBanned) }
func (id Identity) IsDeleted() bool   { return id.Caps.Has(CapDeleted) }

// Claims is the token payload.  Flags travel as plain JSON booleans.
type Claims struct {
	ShopID      string `json:"shop_id"`
	ShopName    string `json:"shop_name,omitempty"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Mobile      string `json:"mobile,omitempty"`
	Admin       bool   `json:"admin"`
	ShopOwner   bool   `json:"shop_owner"`
	ShopAdmin   bool   `json:"shop_admin"`
	BannedUser  bool   `json:"banned_user"`
	DeletedUser bool   `json:"deleted_user"`
}

// Identity converts token claims to an Identity.
func (c Claims) Identity() Identity {
	var caps Capability
	set := func(on bool, f Capability) {
		if on {
			caps |= f
		}
	}
	set(c.Admin, CapAdmin)
	set(c.ShopOwner, CapShopOwner)
	set(c.ShopAdmin, CapShopAdmin)
	set(c.BannedUser, CapBanned)
	set(c.DeletedUser, CapDeleted)
	return Identity{
		ShopID:   c.ShopID,
		ShopName: c.ShopName,
		UserID:   c.UserID,
		Username: c.Username,
		Email:    c.Email,
		Mobile:   c.Mobile,
		Caps:     caps,
	}
}

// Claims converts the identity back to its token payload.
func (id Identity) Claims() Claims {
	return Claims{
		ShopID:      id.ShopID,
		ShopName:    id.ShopName,
		UserID:      id.UserID,
		Username:    id.Username,
		Email:       id.Email,
		Mobile:      id.Mobile,
		Admin:       id.IsAdmin(),
		ShopOwner:   id.IsShopOwner(),
		ShopAdmin:   id.IsShopAdmin(),
		BannedUser:  id.IsBanned(),
		DeletedUser: id.IsDeleted(),
	}
}

// MarshalJSON renders the identity in its claims shape (used by /me).
func (id Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Claims())
}

// Predicate is one authorization check.  nil means allowed.
type Predicate func(Identity) error

// Messages returned by the predicates below.
const (
	MsgOnlyAdmin     = "Forbidden access. Only admin can access"
	MsgOnlyAuthority = "Forbidden access. Only authority can access"
	MsgOnlyOwner     = "Forbidden access. Only owner can access"
	MsgForbidden     = "Forbidden access"
	MsgBanned        = "You are banned. Please contact authority"
	MsgDeleted       = "You are deleted. Please contact authority"
)

func IsAdmin(id Identity) error {
	if !id.IsAdmin() {
		return apperr.Forbidden(MsgOnlyAdmin)
	}
	return nil
}

// IsAuthority allows shop owners and shop admins.
func IsAuthority(id Identity) error {
	if !id.IsAuthority() {
		return apperr.Forbidden(MsgOnlyAuthority)
	}
	return nil
}

func IsShopOwner(id Identity) error {
	if !id.IsShopOwner() {
		return apperr.Forbidden(MsgOnlyOwner)
	}
	return nil
}

// IsActive rejects banned or deleted users.
func IsActive(id Identity) error {
	if id.IsBanned() {
		return apperr.Unauthorized(MsgBanned)
	}
	if id.IsDeleted() {
		return apperr.Unauthorized(MsgDeleted)
	}
	return nil
}

// AnyOf passes when at least one predicate passes.
func AnyOf(preds ...Predicate) Predicate {
	return func(id Identity) error {
		for _, p := range preds {
			if p(id) == nil {
				return nil
			}
		}
		return apperr.Forbidden(MsgForbidden)
	}
}

// All runs predicates in order and returns the first failure.
func All(id Identity, preds ...Predicate) error {
	for _, p := range preds {
		if err := p(id); err != nil {
			return err
		}
	}
	return nil
}
