package repository

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/iliyamo/shop-management/internal/model"
)

// PlanRepo stores subscription plans.  Plans are never updated or deleted.
type PlanRepo struct {
	db *sql.DB
}

func NewPlanRepo(db *sql.DB) *PlanRepo { return &PlanRepo{db: db} }

const planColumns = `id, plan_id, plan_name, description, duration, price, currency, features,
  limitations, upgrade_downgrade_options, cancellation_policy, trial_period, renewal_policy,
  terms_and_conditions, created_by, created_at`

func scanPlan(row interface{ Scan(...any) error }) (*model.SubscriptionPlan, error) {
	p := &model.SubscriptionPlan{}
	err := row.Scan(&p.ID, &p.PlanID, &p.PlanName, &p.Description, &p.Duration, &p.Price, &p.Currency,
		&p.Features, &p.Limitations, &p.UpgradeDowngradeOptions, &p.CancellationPolicy, &p.TrialPeriod,
		&p.RenewalPolicy, &p.TermsAndConditions, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a plan.  A taken plan_name yields ErrConflict.
func (r *PlanRepo) Create(ctx context.Context, p *model.SubscriptionPlan) error {
	const q = `INSERT INTO subscription_plans (plan_id, plan_name, description, duration, price, currency,
  features, limitations, upgrade_downgrade_options, cancellation_policy, trial_period, renewal_policy,
  terms_and_conditions, created_by, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.PlanID, p.PlanName, p.Description, p.Duration, p.Price, p.Currency,
		p.Features, p.Limitations, p.UpgradeDowngradeOptions, p.CancellationPolicy, p.TrialPeriod, p.RenewalPolicy,
		p.TermsAndConditions, p.CreatedBy, p.CreatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// List returns every plan ordered by name.
func (r *PlanRepo) List(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+planColumns+" FROM subscription_plans ORDER BY plan_name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByPlanID loads a plan by its public id.
func (r *PlanRepo) FindByPlanID(ctx context.Context, planID string) (*model.SubscriptionPlan, error) {
	p, err := scanPlan(r.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM subscription_plans WHERE plan_id = ? LIMIT 1", planID))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// FindByParam accepts either the numeric row id or the public plan id.
func (r *PlanRepo) FindByParam(ctx context.Context, param string) (*model.SubscriptionPlan, error) {
	if id, err := strconv.ParseUint(param, 10, 64); err == nil {
		p, err := scanPlan(r.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM subscription_plans WHERE id = ? LIMIT 1", id))
		if err != nil {
			return nil, translate(err)
		}
		return p, nil
	}
	return r.FindByPlanID(ctx, param)
}
