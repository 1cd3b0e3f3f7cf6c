package model

import "time"

// SubscriptionPlan is a global catalog entry.  Plans are immutable once
// created.
type SubscriptionPlan struct {
	ID                      uint64    `json:"id"`
	PlanID                  string    `json:"plan_id"`
	PlanName                string    `json:"plan_name"`
	Description             string    `json:"description"`
	Duration                string    `json:"duration"`
	Price                   float64   `json:"price"`
	Currency                string    `json:"currency"`
	Features                string    `json:"features"`
	Limitations             string    `json:"limitations"`
	UpgradeDowngradeOptions string    `json:"upgrade_downgrade_options"`
	CancellationPolicy      string    `json:"cancellation_policy"`
	TrialPeriod             string    `json:"trial_period"`
	RenewalPolicy           string    `json:"renewal_policy"`
	TermsAndConditions      string    `json:"terms_and_conditions"`
	CreatedBy               string    `json:"createdBy"`
	CreatedAt               time.Time `json:"createdAt"`
}

// PlanSnapshot freezes the plan fields relevant to a payment.
type PlanSnapshot struct {
	PlanID   string  `json:"plan_id" bson:"plan_id" validate:"required"`
	PlanName string  `json:"plan_name" bson:"plan_name"`
	Price    float64 `json:"price" bson:"price" validate:"gt=0"`
	Currency string  `json:"currency" bson:"currency"`
}

// Snapshot returns the plan fields copied into a payment.
func (p *SubscriptionPlan) Snapshot() PlanSnapshot {
	return PlanSnapshot{PlanID: p.PlanID, PlanName: p.PlanName, Price: p.Price, Currency: p.Currency}
}

// Payment is one purchase attempt, stored as a MongoDB document.
// PaymentComplete stays false until reconciled outside this service.
type Payment struct {
	ID               string       `json:"id,omitempty" bson:"_id,omitempty"`
	Amount           float64      `json:"amount" bson:"amount" validate:"gt=0"`
	Currency         string       `json:"currency" bson:"currency" validate:"required"`
	PaymentComplete  bool         `json:"payment_complete" bson:"payment_complete"`
	ShopID           string       `json:"shop_id" bson:"shop_id" validate:"required"`
	UserID           string       `json:"user_id" bson:"user_id" validate:"required"`
	UserEmail        string       `json:"user_email" bson:"user_email" validate:"omitempty,email"`
	UserPhone        string       `json:"user_phone" bson:"user_phone"`
	SubscriptionPlan PlanSnapshot `json:"subscription_plan" bson:"subscription_plan"`
	Reference        string       `json:"reference" bson:"reference"`
	CreatedAt        time.Time    `json:"createdAt" bson:"createdAt"`
}

// PaymentAccount is a receiving account shown after a purchase request.
type PaymentAccount struct {
	Number      string `json:"number"`
	AccountType string `json:"account_type"`
	Provider    string `json:"provider"`
}
