package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/shop-management/internal/model"
)

// ShopRepo encapsulates queries against the shops table.
type ShopRepo struct {
	db *sql.DB
}

func NewShopRepo(db *sql.DB) *ShopRepo { return &ShopRepo{db: db} }

const shopColumns = `id, shop_id, shop_name, shop_slug, detailed_shop_address, country,
  selected_plan_id, trial_running, trial_over, trial_start_at, expires_at,
  subscription_expired, currency, created_by, created_at, updated_by, updated_at`

func scanShop(row interface{ Scan(...any) error }) (*model.Shop, error) {
	s := &model.Shop{}
	var (
		planID                         sql.NullString
		trialStart, expires, updatedAt sql.NullTime
	)
	err := row.Scan(&s.ID, &s.ShopID, &s.ShopName, &s.ShopSlug, &s.Address.DetailedShopAddress, &s.Address.Country,
		&planID, &s.SubscriptionInfo.TrialRunning, &s.SubscriptionInfo.TrialOver, &trialStart, &expires,
		&s.SubscriptionExpired, &s.Currency, &s.CreatedBy, &s.CreatedAt, &s.UpdatedBy, &updatedAt)
	if err != nil {
		return nil, err
	}
	s.SubscriptionInfo.SelectedPlanID = planID.String
	s.SubscriptionInfo.TrialStartAt = timePtr(trialStart)
	s.SubscriptionInfo.ExpiresAt = timePtr(expires)
	s.UpdatedAt = timePtr(updatedAt)
	return s, nil
}

const insertShopSQL = `INSERT INTO shops (shop_id, shop_name, shop_slug, detailed_shop_address, country,
  selected_plan_id, trial_running, trial_over, trial_start_at, expires_at, subscription_expired,
  currency, created_by, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertShopArgs(s *model.Shop) []any {
	si := s.SubscriptionInfo
	return []any{s.ShopID, s.ShopName, s.ShopSlug, s.Address.DetailedShopAddress, s.Address.Country,
		nullString(si.SelectedPlanID), si.TrialRunning, si.TrialOver, nullTime(si.TrialStartAt), nullTime(si.ExpiresAt),
		s.SubscriptionExpired, s.Currency, s.CreatedBy, s.CreatedAt}
}

// Create inserts a shop.  A taken shop_name yields ErrConflict.
func (r *ShopRepo) Create(ctx context.Context, s *model.Shop) error {
	res, err := r.db.ExecContext(ctx, insertShopSQL, insertShopArgs(s)...)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// FindByShopID loads the shop with the given public id.
func (r *ShopRepo) FindByShopID(ctx context.Context, shopID string) (*model.Shop, error) {
	s, err := scanShop(r.db.QueryRowContext(ctx, "SELECT "+shopColumns+" FROM shops WHERE shop_id = ? LIMIT 1", shopID))
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

// FindByParam matches shop id, name or slug; scopeShopID restricts to one shop.
func (r *ShopRepo) FindByParam(ctx context.Context, param, scopeShopID string) (*model.Shop, error) {
	var w where
	w.add("(shop_id = ? OR shop_name = ? OR shop_slug = ?)", param, strings.ToLower(param), strings.ToLower(param))
	w.scope(scopeShopID)
	s, err := scanShop(r.db.QueryRowContext(ctx, "SELECT "+shopColumns+" FROM shops"+w.sql()+" LIMIT 1", w.args...))
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

// NameExists reports whether a shop already uses name.
func (r *ShopRepo) NameExists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shops WHERE shop_name = ?", name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns one page of shops ordered by name.
func (r *ShopRepo) List(ctx context.Context, lq ListQuery) ([]*model.Shop, int, error) {
	var w where
	w.scope(lq.ShopID)
	w.search(lq.Search, "shop_id", "shop_name", "shop_slug", "created_by")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shops"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := "SELECT " + shopColumns + " FROM shops" + w.sql() + " ORDER BY shop_name ASC, id ASC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(w.args, lq.Limit, lq.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*model.Shop, 0, lq.Limit)
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// markExpiredSQL flags the shop expired.  A running trial becomes a used
// one; MySQL applies the assignments left to right.
const markExpiredSQL = `UPDATE shops SET subscription_expired = TRUE,
  trial_over = (trial_over OR trial_running), trial_running = FALSE WHERE shop_id = ?`

// MarkExpired sets subscription_expired on the shop and ends its trial.
func (r *ShopRepo) MarkExpired(ctx context.Context, shopID string) error {
	_, err := r.db.ExecContext(ctx, markExpiredSQL, shopID)
	return err
}

// UpdateSubscription replaces the subscription info, clears the expired
// flag and stamps the update.
func (r *ShopRepo) UpdateSubscription(ctx context.Context, shopID string, si model.SubscriptionInfo, updatedBy string, at time.Time) error {
	const q = `UPDATE shops SET selected_plan_id = ?, trial_running = ?, trial_over = ?, trial_start_at = ?,
  expires_at = ?, subscription_expired = FALSE, updated_by = ?, updated_at = ? WHERE shop_id = ?`
	res, err := r.db.ExecContext(ctx, q, nullString(si.SelectedPlanID), si.TrialRunning, si.TrialOver,
		nullTime(si.TrialStartAt), nullTime(si.ExpiresAt), updatedBy, at, shopID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
