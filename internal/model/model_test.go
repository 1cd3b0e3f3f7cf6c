package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shop-management/internal/auth"
)

func TestEntityJSONUsesKindFieldNames(t *testing.T) {
	e := Entity{
		Kind:      KindProductType,
		ID:        7,
		EntityID:  "pt-1",
		ShopID:    "shop-1",
		Name:      "soap",
		Slug:      "soap",
		CreatedBy: "rahim",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "pt-1", m["product_type_id"])
	assert.Equal(t, "soap", m["product_type"])
	assert.Equal(t, "soap", m["product_type_slug"])
	assert.Equal(t, "shop-1", m["shop_id"])
	assert.NotContains(t, m, "updatedAt")
}

func TestUserJSONHidesPassword(t *testing.T) {
	u := User{UserID: "u1", Username: "rahim", PasswordHash: "$2a$10$hash", Caps: auth.CapShopOwner | auth.CapBanned}
	raw, err := json.Marshal(u)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "hash")
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, true, m["shop_owner"])
	assert.Equal(t, true, m["banned_user"])
	assert.Equal(t, false, m["admin"])
}

func TestProductTitle(t *testing.T) {
	assert.Equal(t, "soap lux 100g", ProductTitle("soap", "lux", "100g"))
}
