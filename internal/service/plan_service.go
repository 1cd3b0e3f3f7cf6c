package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/utils"
	"github.com/iliyamo/shop-management/internal/validate"
)

// PlanCurrency is the currency plans are priced in.
const PlanCurrency = "USD"

// PlanInput is the body of a plan creation request.
type PlanInput struct {
	PlanName                string `json:"plan_name"`
	Description             string `json:"description"`
	Duration                string `json:"duration"`
	Price                   any    `json:"price"`
	Features                string `json:"features"`
	Limitations             string `json:"limitations"`
	UpgradeDowngradeOptions string `json:"upgrade_downgrade_options"`
	CancellationPolicy      string `json:"cancellation_policy"`
	TrialPeriod             string `json:"trial_period"`
	RenewalPolicy           string `json:"renewal_policy"`
	TermsAndConditions      string `json:"terms_and_conditions"`
}

// PlanService manages the global plan catalog.  Plans cannot be edited
// or deleted once created.
type PlanService struct {
	base
	plans PlanStore
}

func NewPlanService(plans PlanStore, timeout time.Duration, log *logrus.Logger) *PlanService {
	return &PlanService{base: newBase(timeout, log), plans: plans}
}

// Create validates in and stores a new plan.
func (s *PlanService) Create(ctx context.Context, id auth.Identity, in PlanInput) (*model.SubscriptionPlan, error) {
	texts := []string{in.PlanName, in.Description, in.Duration, in.Features, in.Limitations,
		in.UpgradeDowngradeOptions, in.CancellationPolicy, in.TrialPeriod, in.RenewalPolicy, in.TermsAndConditions}
	for _, t := range texts {
		if blank(t) {
			return nil, apperr.Validation("", "All fields are required")
		}
	}
	if absent(in.Price) {
		return nil, apperr.Validation("price", "All fields are required")
	}

	p := &model.SubscriptionPlan{
		PlanID:    utils.NewID(),
		Currency:  PlanCurrency,
		CreatedBy: id.UserID,
		CreatedAt: s.now(),
	}
	fields := []struct {
		raw      string
		label    string
		min, max int
		dst      *string
	}{
		{in.PlanName, "Plan_name", 2, 100, &p.PlanName},
		{in.Description, "Description", 15, 400, &p.Description},
		{in.Duration, "Duration", 2, 30, &p.Duration},
		{in.Features, "Features", 10, 400, &p.Features},
		{in.Limitations, "Limitations", 10, 200, &p.Limitations},
		{in.UpgradeDowngradeOptions, "Upgrade_downgrade_options", 10, 200, &p.UpgradeDowngradeOptions},
		{in.CancellationPolicy, "Cancellation_policy", 5, 200, &p.CancellationPolicy},
		{in.TrialPeriod, "Trial_period", 2, 20, &p.TrialPeriod},
		{in.RenewalPolicy, "Renewal_policy", 5, 200, &p.RenewalPolicy},
		{in.TermsAndConditions, "Terms_and_conditions", 10, 500, &p.TermsAndConditions},
	}
	var err error
	for _, f := range fields {
		if *f.dst, err = validate.String(f.raw, f.label, f.min, f.max); err != nil {
			return nil, err
		}
	}
	if p.Price, err = validate.PositiveNumber(in.Price, "Plan price must be a positive number"); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.plans.Create(ctx, p); err != nil {
		if isConflict(err) {
			return nil, apperr.Conflict("Plan name already exists")
		}
		return nil, s.internal(err, "plan.create")
	}
	s.log.WithFields(logrus.Fields{"plan_id": p.PlanID, "plan_name": p.PlanName}).Info("subscription plan created")
	return p, nil
}

// List returns every plan.
func (s *PlanService) List(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, s.internal(err, "plan.list")
	}
	if plans == nil {
		plans = []*model.SubscriptionPlan{}
	}
	return plans, nil
}

// Get looks a plan up by row id, plan id or name.
func (s *PlanService) Get(ctx context.Context, param string) (*model.SubscriptionPlan, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	p, err := s.plans.FindByParam(ctx, strings.TrimSpace(param))
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Subscription plan not found")
		}
		return nil, s.internal(err, "plan.get")
	}
	return p, nil
}
