package model

import (
	"encoding/json"
	"time"
)

// Kind describes one tenant-scoped catalog collection.  The four kinds
// share a table layout (id, <kind>_id, shop_id, name, slug, audit
// columns) and differ only in names, messages and name length bounds.
type Kind struct {
	Key     string // json field of the name, e.g. "product_type"
	Table   string // MySQL table
	Label   string // used in validation messages, e.g. "Product type"
	Plural  string // used in list messages, e.g. "Product types"
	MinLen  int
	MaxLen  int
	BulkKey string // request body key holding ids to delete
}

// IDField is the json name of the public id, e.g. "category_id".
func (k Kind) IDField() string { return k.Key + "_id" }

// SlugField is the json name of the slug, e.g. "category_slug".
func (k Kind) SlugField() string { return k.Key + "_slug" }

var (
	KindCategory = Kind{
		Key: "category", Table: "categories", Label: "Category", Plural: "Categories",
		MinLen: 3, MaxLen: 100, BulkKey: "categoryIds",
	}
	KindGroup = Kind{
		Key: "group", Table: "product_groups", Label: "Group", Plural: "Groups",
		MinLen: 3, MaxLen: 100, BulkKey: "groupIds",
	}
	KindSupplier = Kind{
		Key: "supplier", Table: "suppliers", Label: "Supplier", Plural: "Suppliers",
		MinLen: 2, MaxLen: 100, BulkKey: "supplierIds",
	}
	KindProductType = Kind{
		Key: "product_type", Table: "product_types", Label: "Product type", Plural: "Product types",
		MinLen: 1, MaxLen: 100, BulkKey: "productTypeIds",
	}
)

// Kinds lists every catalog kind in route registration order.
var Kinds = []Kind{KindCategory, KindGroup, KindSupplier, KindProductType}

// Entity is a row of one of the catalog tables.
type Entity struct {
	Kind      Kind
	ID        uint64
	EntityID  string
	ShopID    string
	Name      string
	Slug      string
	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt *time.Time
}

// MarshalJSON emits kind-specific field names, e.g. category_id,
// category and category_slug for a category.
func (e Entity) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"id":               e.ID,
		e.Kind.IDField():   e.EntityID,
		"shop_id":          e.ShopID,
		e.Kind.Key:         e.Name,
		e.Kind.SlugField(): e.Slug,
		"createdBy":        e.CreatedBy,
		"createdAt":        e.CreatedAt,
	}
	if e.UpdatedBy != "" {
		m["updatedBy"] = e.UpdatedBy
	}
	if e.UpdatedAt != nil {
		m["updatedAt"] = e.UpdatedAt
	}
	return json.Marshal(m)
}
