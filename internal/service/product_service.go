package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-management/internal/apperr"
	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/repository"
	"github.com/iliyamo/shop-management/internal/telemetry"
	"github.com/iliyamo/shop-management/internal/utils"
	"github.com/iliyamo/shop-management/internal/validate"
)

// Product messages.
const (
	MsgSellAbovePurchase = "Sell price must be more than purchase price"
	msgPurchasePositive  = "Purchase price must be a positive number"
	msgSellPositive      = "Sell price must be a positive number"
	msgStockNumber       = "Stock must be a number"
)

// ProductInput is the create/edit body.  Prices and stock arrive as JSON
// numbers or numeric strings.
type ProductInput struct {
	ProductName    string `json:"product_name"`
	GroupName      string `json:"group_name"`
	Supplier       string `json:"supplier"`
	Category       string `json:"category"`
	WeightOrSize   string `json:"weight_or_size"`
	ProductType    string `json:"product_type"`
	DiscountOption *bool  `json:"discount_option"`
	PurchasePrice  any    `json:"purchase_price"`
	SellPrice      any    `json:"sell_price"`
	StockLeft      any    `json:"stock_left"`
}

func (in ProductInput) empty() bool {
	return blank(in.ProductName) && blank(in.GroupName) && blank(in.Supplier) && blank(in.Category) &&
		blank(in.WeightOrSize) && blank(in.ProductType) && in.DiscountOption == nil &&
		absent(in.PurchasePrice) && absent(in.SellPrice) && absent(in.StockLeft)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// absent treats null and "" as not provided.
func absent(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && blank(s)
}

// text bounds shared by create and edit
type textField struct {
	label    string
	min, max int
}

var (
	fieldProductName  = textField{"Product_name", 2, 150}
	fieldGroupName    = textField{"Group_name", 2, 200}
	fieldSupplier     = textField{"Supplier", 2, 150}
	fieldCategory     = textField{"Category", 2, 100}
	fieldWeightOrSize = textField{"Weight_or_size", 2, 150}
	fieldProductType  = textField{"Product_type", 2, 100}
)

func (f textField) check(raw string) (string, error) {
	return validate.String(raw, f.label, f.min, f.max)
}

// ProductService is the CRUD engine for products.
type ProductService struct {
	base
	store ProductStore
}

func NewProductService(store ProductStore, timeout time.Duration, log *logrus.Logger) *ProductService {
	return &ProductService{base: newBase(timeout, log), store: store}
}

// Create validates in and inserts a product for the caller's shop.
func (s *ProductService) Create(ctx context.Context, id auth.Identity, in ProductInput) (_ *model.Product, err error) {
	ctx, span := telemetry.StartSpan(ctx, "product.create")
	defer func() { telemetry.EndSpan(span, err) }()

	required := []struct {
		v   any
		msg string
	}{
		{in.ProductName, "Product_name is required"},
		{in.GroupName, "Group name is required"},
		{in.Supplier, "Supplier is required"},
		{in.Category, "Category is required"},
		{in.WeightOrSize, "Weight_or_size is required"},
		{in.ProductType, "Product_type is required"},
		{in.PurchasePrice, "Purchase_price is required"},
		{in.SellPrice, "Sell_price is required"},
	}
	for _, r := range required {
		if err := validate.Required(r.v, r.msg); err != nil {
			return nil, err
		}
	}

	p := &model.Product{
		ProductID:      utils.NewID(),
		ShopID:         id.ShopID,
		DiscountOption: true,
		CreatedBy:      id.Username,
		CreatedAt:      s.now(),
	}
	texts := []struct {
		f   textField
		raw string
		dst *string
	}{
		{fieldProductName, in.ProductName, &p.ProductName},
		{fieldGroupName, in.GroupName, &p.GroupName},
		{fieldSupplier, in.Supplier, &p.Supplier},
		{fieldCategory, in.Category, &p.Category},
		{fieldWeightOrSize, in.WeightOrSize, &p.WeightOrSize},
		{fieldProductType, in.ProductType, &p.ProductType},
	}
	for _, t := range texts {
		if *t.dst, err = t.f.check(t.raw); err != nil {
			return nil, err
		}
	}

	if p.PurchasePrice, err = validate.PositiveNumber(in.PurchasePrice, msgPurchasePositive); err != nil {
		return nil, err
	}
	if p.SellPrice, err = validate.PositiveNumber(in.SellPrice, msgSellPositive); err != nil {
		return nil, err
	}
	if p.PurchasePrice >= p.SellPrice {
		return nil, apperr.Validation("sell_price", MsgSellAbovePurchase)
	}
	if in.DiscountOption != nil {
		p.DiscountOption = *in.DiscountOption
	}
	if !absent(in.StockLeft) {
		if p.StockLeft, err = validate.NonNegativeInt(in.StockLeft, msgStockNumber); err != nil {
			return nil, err
		}
		p.LifetimeSupply = p.StockLeft
	}

	p.ProductTitle = model.ProductTitle(p.ProductType, p.ProductName, p.WeightOrSize)
	p.ProductTitleSlug = utils.Slugify(p.ProductTitle)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.Create(ctx, p); err != nil {
		if isConflict(err) {
			return nil, apperr.Conflict("Already exists this product in this shop")
		}
		return nil, s.internal(err, "product.create")
	}
	return p, nil
}

// List returns one page of products ordered by name.
func (s *ProductService) List(ctx context.Context, id auth.Identity, p PageRequest) (Page[*model.Product], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	items, total, err := s.store.List(ctx, p.query(scopeFor(id)))
	if err != nil {
		return Page[*model.Product]{}, s.internal(err, "product.list")
	}
	return newPage(items, total, p), nil
}

// GetOne looks a product up by product id, title or title slug.
func (s *ProductService) GetOne(ctx context.Context, id auth.Identity, param string) (*model.Product, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	p, err := s.store.FindByParam(ctx, strings.TrimSpace(param), scopeFor(id))
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Product not found")
		}
		return nil, s.internal(err, "product.get")
	}
	return p, nil
}

// BulkDelete removes products by product id.
func (s *ProductService) BulkDelete(ctx context.Context, id auth.Identity, rawIDs any) (int64, error) {
	ids, err := IDList(rawIDs, "productIds")
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, apperr.NotFound("Document not found for deletion")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.store.DeleteMany(ctx, ids, scopeFor(id))
	if err != nil {
		return 0, s.internal(err, "product.delete")
	}
	if n == 0 {
		return 0, apperr.NotFound("Document not found for deletion")
	}
	return n, nil
}

// Update applies the provided fields of in to product rawID.  Editing the
// name, type or weight recomputes the title; a changed price is checked
// against the other price's new or current value.
func (s *ProductService) Update(ctx context.Context, id auth.Identity, rawID string, in ProductInput) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "product.update")
	defer func() { telemetry.EndSpan(span, err) }()

	rowID, err := ParseRowID(rawID)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.store.FindByID(ctx, rowID, scopeFor(id))
	if err != nil {
		if isNotFound(err) {
			return apperr.NotFound("Document not found")
		}
		return s.internal(err, "product.update")
	}
	if in.empty() {
		return apperr.Validation("", "Information required for edit")
	}

	var changes []repository.ProductChange
	set := func(col string, v any) {
		changes = append(changes, repository.ProductChange{Column: col, Value: v})
	}

	next := *cur
	texts := []struct {
		f   textField
		raw string
		col string
		dst *string
	}{
		{fieldProductName, in.ProductName, repository.ProductColName, &next.ProductName},
		{fieldGroupName, in.GroupName, repository.ProductColGroupName, &next.GroupName},
		{fieldSupplier, in.Supplier, repository.ProductColSupplier, &next.Supplier},
		{fieldCategory, in.Category, repository.ProductColCategory, &next.Category},
		{fieldWeightOrSize, in.WeightOrSize, repository.ProductColWeightOrSize, &next.WeightOrSize},
		{fieldProductType, in.ProductType, repository.ProductColType, &next.ProductType},
	}
	for _, t := range texts {
		if blank(t.raw) {
			continue
		}
		if *t.dst, err = t.f.check(t.raw); err != nil {
			return err
		}
		set(t.col, *t.dst)
	}

	purchaseChanged, sellChanged := !absent(in.PurchasePrice), !absent(in.SellPrice)
	if purchaseChanged {
		if next.PurchasePrice, err = validate.PositiveNumber(in.PurchasePrice, msgPurchasePositive); err != nil {
			return err
		}
		set(repository.ProductColPurchasePrice, next.PurchasePrice)
	}
	if sellChanged {
		if next.SellPrice, err = validate.PositiveNumber(in.SellPrice, msgSellPositive); err != nil {
			return err
		}
		set(repository.ProductColSellPrice, next.SellPrice)
	}
	if (purchaseChanged || sellChanged) && next.PurchasePrice >= next.SellPrice {
		return apperr.Validation("sell_price", MsgSellAbovePurchase)
	}

	if !absent(in.StockLeft) {
		if next.StockLeft, err = validate.NonNegativeInt(in.StockLeft, msgStockNumber); err != nil {
			return err
		}
		set(repository.ProductColStockLeft, next.StockLeft)
	}
	if in.DiscountOption != nil {
		set(repository.ProductColDiscountOption, *in.DiscountOption)
	}

	if next.ProductName != cur.ProductName || next.ProductType != cur.ProductType || next.WeightOrSize != cur.WeightOrSize {
		title := model.ProductTitle(next.ProductType, next.ProductName, next.WeightOrSize)
		set(repository.ProductColTitle, title)
		set(repository.ProductColTitleSlug, utils.Slugify(title))
	}

	n, err := s.store.Update(ctx, rowID, changes, id.Username, s.now())
	if err != nil {
		if isConflict(err) {
			return apperr.Conflict("Already exists this title. Try something new")
		}
		return s.internal(err, "product.update")
	}
	if n == 0 {
		return apperr.Internal(nil, "Something went wrong when updating. Try again")
	}
	return nil
}
