package model

import "time"

// Product is one row of the `products` table.  Title is composed from
// type, name and weight/size and its slug is unique per shop.
type Product struct {
	ID               uint64     `json:"id"`
	ProductID        string     `json:"product_id"`
	ShopID           string     `json:"shop_id"`
	ProductTitle     string     `json:"product_title"`
	ProductTitleSlug string     `json:"product_title_slug"`
	ProductName      string     `json:"product_name"`
	GroupName        string     `json:"group_name"`
	Supplier         string     `json:"supplier"`
	Category         string     `json:"category"`
	WeightOrSize     string     `json:"weight_or_size"`
	ProductType      string     `json:"product_type"`
	DiscountOption   bool       `json:"discount_option"`
	PurchasePrice    float64    `json:"purchase_price"`
	SellPrice        float64    `json:"sell_price"`
	StockLeft        int64      `json:"stock_left"`
	LifetimeSupply   int64      `json:"lifetime_supply"`
	LifetimeSells    int64      `json:"lifetime_sells"`
	CreatedBy        string     `json:"createdBy"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedBy        string     `json:"updatedBy,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

// ProductTitle joins the three title parts with single spaces.
func ProductTitle(productType, name, weightOrSize string) string {
	return productType + " " + name + " " + weightOrSize
}
