package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/model"
)

// UserRepo encapsulates queries against the users table.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, user_id, shop_id, shop_name, name, username, email, mobile, password_hash,
  capabilities, detailed_shop_address, country, created_by, created_at, updated_by, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	var (
		caps      uint8
		updatedAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.UserID, &u.ShopID, &u.ShopName, &u.Name, &u.Username, &u.Email, &u.Mobile,
		&u.PasswordHash, &caps, &u.Address.DetailedShopAddress, &u.Address.Country,
		&u.CreatedBy, &u.CreatedAt, &u.UpdatedBy, &updatedAt)
	if err != nil {
		return nil, err
	}
	u.Caps = auth.Capability(caps)
	u.UpdatedAt = timePtr(updatedAt)
	return u, nil
}

const insertUserSQL = `INSERT INTO users (user_id, shop_id, shop_name, name, username, email, mobile,
  password_hash, capabilities, detailed_shop_address, country, created_by, created_at)
  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertUserArgs(u *model.User) []any {
	return []any{u.UserID, u.ShopID, u.ShopName, u.Name, u.Username, u.Email, u.Mobile,
		u.PasswordHash, uint8(u.Caps), u.Address.DetailedShopAddress, u.Address.Country, u.CreatedBy, u.CreatedAt}
}

// FindByLogin loads a user by username or email.
func (r *UserRepo) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ? OR email = ? LIMIT 1", login, login))
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// FindByUserID loads a user by public id, optionally scoped to a shop.
func (r *UserRepo) FindByUserID(ctx context.Context, userID, shopID string) (*model.User, error) {
	var w where
	w.add("user_id = ?", userID)
	w.scope(shopID)
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users"+w.sql()+" LIMIT 1", w.args...))
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// Exists reports whether email or username is already registered.
func (r *UserRepo) Exists(ctx context.Context, email, username string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ? OR username = ?",
		strings.ToLower(email), strings.ToLower(username)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns one page of users ordered by name.
func (r *UserRepo) List(ctx context.Context, lq ListQuery) ([]*model.User, int, error) {
	var w where
	w.scope(lq.ShopID)
	w.search(lq.Search, "name", "username", "email", "mobile", "shop_name", "user_id")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := "SELECT " + userColumns + " FROM users" + w.sql() + " ORDER BY name ASC, id ASC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(w.args, lq.Limit, lq.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*model.User, 0, lq.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Delete removes a user by public id.
func (r *UserRepo) Delete(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE user_id = ?", userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
