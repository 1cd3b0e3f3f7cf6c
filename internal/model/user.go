package model

import (
	"encoding/json"
	"time"

	"github.com/iliyamo/shop-management/internal/auth"
)

// User is one row of the `users` table.  Users are only created by
// account activation, together with their shop.
type User struct {
	ID           uint64          `json:"id"`
	UserID       string          `json:"user_id"`
	ShopID       string          `json:"shop_id"`
	ShopName     string          `json:"shop_name"`
	Name         string          `json:"name"`
	Username     string          `json:"username"`
	Email        string          `json:"email"`
	Mobile       string          `json:"mobile"`
	PasswordHash string          `json:"-"`
	Caps         auth.Capability `json:"-"`
	Address      Address         `json:"address"`
	CreatedBy    string          `json:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedBy    string          `json:"updatedBy,omitempty"`
	UpdatedAt    *time.Time      `json:"updatedAt,omitempty"`
}

// Identity builds the session identity for the user.
func (u *User) Identity() auth.Identity {
	return auth.Identity{
		ShopID:   u.ShopID,
		ShopName: u.ShopName,
		UserID:   u.UserID,
		Username: u.Username,
		Email:    u.Email,
		Mobile:   u.Mobile,
		Caps:     u.Caps,
	}
}

// userJSON flattens the capability set into the boolean flags clients see.
type userJSON struct {
	ID          uint64     `json:"id"`
	UserID      string     `json:"user_id"`
	ShopID      string     `json:"shop_id"`
	ShopName    string     `json:"shop_name"`
	Name        string     `json:"name"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Mobile      string     `json:"mobile"`
	Admin       bool       `json:"admin"`
	ShopOwner   bool       `json:"shop_owner"`
	ShopAdmin   bool       `json:"shop_admin"`
	BannedUser  bool       `json:"banned_user"`
	DeletedUser bool       `json:"deleted_user"`
	Address     Address    `json:"address"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedBy   string     `json:"updatedBy,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// MarshalJSON never includes the password hash.
func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(userJSON{
		ID:          u.ID,
		UserID:      u.UserID,
		ShopID:      u.ShopID,
		ShopName:    u.ShopName,
		Name:        u.Name,
		Username:    u.Username,
		Email:       u.Email,
		Mobile:      u.Mobile,
		Admin:       u.Caps.Has(auth.CapAdmin),
		ShopOwner:   u.Caps.Has(auth.CapShopOwner),
		ShopAdmin:   u.Caps.Has(auth.CapShopAdmin),
		BannedUser:  u.Caps.Has(auth.CapBanned),
		DeletedUser: u.Caps.Has(auth.CapDeleted),
		Address:     u.Address,
		CreatedBy:   u.CreatedBy,
		CreatedAt:   u.CreatedAt,
		UpdatedBy:   u.UpdatedBy,
		UpdatedAt:   u.UpdatedAt,
	})
}
