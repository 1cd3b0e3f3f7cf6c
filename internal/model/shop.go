package model

import "time"

// Address is the postal address captured at signup.  Country is stored
// normalized (lowercase) and drives payment availability.
type Address struct {
	DetailedShopAddress string `json:"detailed_shop_address"`
	Country             string `json:"country"`
}

// SubscriptionInfo tracks the shop's plan selection and trial state.
// ExpiresAt is nil until a trial or paid subscription starts.
type SubscriptionInfo struct {
	SelectedPlanID string     `json:"selected_plan_id,omitempty"`
	TrialRunning   bool       `json:"trial_running"`
	TrialOver      bool       `json:"trial_over"`
	TrialStartAt   *time.Time `json:"trial_startAt,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
}

// Shop is the tenant root, one row of the `shops` table.  ShopID is the
// public identifier every tenant-scoped row copies; ID is the row id.
type Shop struct {
	ID                  uint64           `json:"id"`
	ShopID              string           `json:"shop_id"`
	ShopName            string           `json:"shop_name"`
	ShopSlug            string           `json:"shop_slug"`
	Address             Address          `json:"address"`
	SubscriptionInfo    SubscriptionInfo `json:"subscription_info"`
	SubscriptionExpired bool             `json:"subscription_expired"`
	Currency            string           `json:"currency"`
	CreatedBy           string           `json:"createdBy"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedBy           string           `json:"updatedBy,omitempty"`
	UpdatedAt           *time.Time       `json:"updatedAt,omitempty"`
}
