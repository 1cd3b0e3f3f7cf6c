package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/shop-management/internal/model"
)

// ProductRepo encapsulates all queries against the products table.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `id, product_id, shop_id, product_title, product_title_slug, product_name,
  group_name, supplier, category, weight_or_size, product_type, discount_option,
  purchase_price, sell_price, stock_left, lifetime_supply, lifetime_sells,
  created_by, created_at, updated_by, updated_at`

// productSearchColumns are matched by List's search term.
var productSearchColumns = []string{
	"product_title", "product_title_slug", "product_name", "group_name",
	"supplier", "category", "product_type", "created_by", "shop_id",
}

func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	p := &model.Product{}
	var updatedAt sql.NullTime
	err := row.Scan(&p.ID, &p.ProductID, &p.ShopID, &p.ProductTitle, &p.ProductTitleSlug, &p.ProductName,
		&p.GroupName, &p.Supplier, &p.Category, &p.WeightOrSize, &p.ProductType, &p.DiscountOption,
		&p.PurchasePrice, &p.SellPrice, &p.StockLeft, &p.LifetimeSupply, &p.LifetimeSells,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedBy, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = timePtr(updatedAt)
	return p, nil
}

// Create inserts p.  A title slug already used in the shop yields
// ErrConflict.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	const q = `INSERT INTO products (product_id, shop_id, product_title, product_title_slug, product_name,
  group_name, supplier, category, weight_or_size, product_type, discount_option,
  purchase_price, sell_price, stock_left, lifetime_supply, lifetime_sells, created_by, created_at)
  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.ProductID, p.ShopID, p.ProductTitle, p.ProductTitleSlug, p.ProductName,
		p.GroupName, p.Supplier, p.Category, p.WeightOrSize, p.ProductType, p.DiscountOption,
		p.PurchasePrice, p.SellPrice, p.StockLeft, p.LifetimeSupply, p.LifetimeSells, p.CreatedBy, p.CreatedAt)
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

// List returns one page of products ordered by product name.
func (r *ProductRepo) List(ctx context.Context, lq ListQuery) ([]*model.Product, int, error) {
	var w where
	w.scope(lq.ShopID)
	w.search(lq.Search, productSearchColumns...)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := "SELECT " + productColumns + " FROM products" + w.sql() + " ORDER BY product_name ASC, id ASC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(w.args, lq.Limit, lq.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*model.Product, 0, lq.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// FindByParam matches product id, title or title slug.
func (r *ProductRepo) FindByParam(ctx context.Context, param, shopID string) (*model.Product, error) {
	var w where
	w.add("(product_id = ? OR product_title = ? OR product_title_slug = ?)", param, strings.ToLower(param), strings.ToLower(param))
	w.scope(shopID)
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products"+w.sql()+" LIMIT 1", w.args...))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// FindByID loads a product by row id, optionally scoped to a shop.
func (r *ProductRepo) FindByID(ctx context.Context, id uint64, shopID string) (*model.Product, error) {
	var w where
	w.add("id = ?", id)
	w.scope(shopID)
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products"+w.sql()+" LIMIT 1", w.args...))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// DeleteMany removes products by public id.
func (r *ProductRepo) DeleteMany(ctx context.Context, ids []string, shopID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var w where
	w.add("product_id IN ("+placeholders(len(ids))+")", toArgs(ids)...)
	w.scope(shopID)
	res, err := r.db.ExecContext(ctx, "DELETE FROM products"+w.sql(), w.args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ProductChange is one column assignment of a partial update.  Column
// must be one of the Product* column constants.
type ProductChange struct {
	Column string
	Value  any
}

// Updatable product columns.
const (
	ProductColName           = "product_name"
	ProductColTitle          = "product_title"
	ProductColTitleSlug      = "product_title_slug"
	ProductColGroupName      = "group_name"
	ProductColSupplier       = "supplier"
	ProductColCategory       = "category"
	ProductColWeightOrSize   = "weight_or_size"
	ProductColType           = "product_type"
	ProductColDiscountOption = "discount_option"
	ProductColPurchasePrice  = "purchase_price"
	ProductColSellPrice      = "sell_price"
	ProductColStockLeft      = "stock_left"
)

var updatableProductColumns = map[string]bool{
	ProductColName: true, ProductColTitle: true, ProductColTitleSlug: true,
	ProductColGroupName: true, ProductColSupplier: true, ProductColCategory: true,
	ProductColWeightOrSize: true, ProductColType: true, ProductColDiscountOption: true,
	ProductColPurchasePrice: true, ProductColSellPrice: true, ProductColStockLeft: true,
}

// Update applies changes to row id and stamps updated_by/updated_at.  It
// returns affected rows; ErrConflict when the new title slug is taken.
func (r *ProductRepo) Update(ctx context.Context, id uint64, changes []ProductChange, updatedBy string, at time.Time) (int64, error) {
	sets := make([]string, 0, len(changes)+2)
	args := make([]any, 0, len(changes)+3)
	for _, c := range changes {
		if !updatableProductColumns[c.Column] {
			continue
		}
		sets = append(sets, c.Column+" = ?")
		args = append(args, c.Value)
	}
	sets = append(sets, "updated_by = ?", "updated_at = ?")
	args = append(args, updatedBy, at, id)

	res, err := r.db.ExecContext(ctx, "UPDATE products SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}
