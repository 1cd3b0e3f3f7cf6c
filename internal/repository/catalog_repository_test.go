package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shop-management/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var catalogCols = []string{"id", "entity_id", "shop_id", "name", "slug", "created_by", "created_at", "updated_by", "updated_at"}

func TestCatalogCreateDuplicateIsConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCatalogRepo(db, model.KindCategory)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO categories")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.Entity{EntityID: "c1", ShopID: "s1", Name: "fruits", Slug: "fruits"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCatalogCreateSetsRowID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCatalogRepo(db, model.KindSupplier)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO suppliers")).
		WithArgs("sup-1", "s1", "acme", "acme", "rahim", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	e := &model.Entity{EntityID: "sup-1", ShopID: "s1", Name: "acme", Slug: "acme", CreatedBy: "rahim", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), e))
	assert.Equal(t, uint64(42), e.ID)
	assert.Equal(t, model.KindSupplier, e.Kind)
}

func TestCatalogListScopesAndSearches(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCatalogRepo(db, model.KindCategory)
	p := "%fr\\%%"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM categories WHERE shop_id = ? AND (LOWER(name) LIKE ? OR LOWER(slug) LIKE ? OR LOWER(entity_id) LIKE ? OR LOWER(shop_id) LIKE ?)")).
		WithArgs("s1", p, p, p, p).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY name ASC, id ASC LIMIT ? OFFSET ?")).
		WithArgs("s1", p, p, p, p, 10, 10).
		WillReturnRows(sqlmock.NewRows(catalogCols).AddRow(3, "c3", "s1", "fresh", "fresh", "rahim", time.Now(), "", nil))

	items, total, err := repo.List(context.Background(), ListQuery{ShopID: "s1", Search: "FR%", Offset: 10, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].Name)
	assert.Nil(t, items[0].UpdatedAt)
}

func TestCatalogFindByParamNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCatalogRepo(db, model.KindGroup)

	mock.ExpectQuery(regexp.QuoteMeta("FROM product_groups WHERE (entity_id = ? OR name = ? OR slug = ?) AND shop_id = ? LIMIT 1")).
		WithArgs("Dairy", "dairy", "dairy", "s1").
		WillReturnRows(sqlmock.NewRows(catalogCols))

	_, err := repo.FindByParam(context.Background(), "Dairy", "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogDeleteManyIsScoped(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCatalogRepo(db, model.KindProductType)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM product_types WHERE entity_id IN (?, ?) AND shop_id = ?")).
		WithArgs("a", "b", "s1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteMany(context.Background(), []string{"a", "b"}, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestProductUpdateIgnoresUnknownColumns(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProductRepo(db)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET sell_price = ?, updated_by = ?, updated_at = ? WHERE id = ?")).
		WithArgs(25.0, "rahim", at, uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Update(context.Background(), 9, []ProductChange{
		{Column: ProductColSellPrice, Value: 25.0},
		{Column: "shop_id", Value: "other"},
	}, "rahim", at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
