package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/shop-management/internal/model"
)

// AccountRepo materializes an activated signup: the shop and its owner
// are inserted in one transaction so neither exists without the other.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

// CreateShopWithOwner inserts shop and user atomically.  A duplicate shop
// name, email or username (including a concurrent activation of the same
// token) rolls back and returns ErrConflict.
func (r *AccountRepo) CreateShopWithOwner(ctx context.Context, shop *model.Shop, user *model.User) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, insertShopSQL, insertShopArgs(shop)...)
	if err != nil {
		return translate(err)
	}
	shopRowID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx, insertUserSQL, insertUserArgs(user)...)
	if err != nil {
		return translate(err)
	}
	userRowID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit activation: %w", err)
	}
	shop.ID = uint64(shopRowID)
	user.ID = uint64(userRowID)
	return nil
}
