package product

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/solara-commerce/solara-backend/internal/config"
	"github.com/solara-commerce/solara-backend/internal/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Product{}))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Checkout: config.CheckoutConfig{
			FreeShippingThreshold: 10000,
			FlatShippingRate:      2500,
			MaxQuantityPerLine:    10,
			GuestCartTTL:          24 * time.Hour,
		},
	}
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, price int64, stock int, status Status) *Product {
	t.Helper()
	p := &Product{
		SKU:    sku,
		Name:   "Test " + sku,
		Slug:   "test-" + sku,
		Price:  price,
		Stock:  stock,
		Status: status,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestDecrementStock(t *testing.T) {
	db := setupTestDB(t)
	p := seedProduct(t, db, "sku-1", 2500, 5, StatusActive)

	require.NoError(t, DecrementStock(db, p.ID, 3))

	var got Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 2, got.Stock)
}

func TestDecrementStockFloor(t *testing.T) {
	db := setupTestDB(t)
	p := seedProduct(t, db, "sku-1", 2500, 2, StatusActive)

	err := DecrementStock(db, p.ID, 3)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeInsufficientStock))

	// Stock must be untouched after a failed decrement
	var got Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 2, got.Stock)

	// Draining to exactly zero is fine
	require.NoError(t, DecrementStock(db, p.ID, 2))
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 0, got.Stock)
}

func TestIncrementStock(t *testing.T) {
	db := setupTestDB(t)
	p := seedProduct(t, db, "sku-1", 2500, 1, StatusActive)

	require.NoError(t, IncrementStock(db, p.ID, 4))

	var got Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 5, got.Stock)

	err := IncrementStock(db, 9999, 1)
	assert.True(t, errs.IsCode(err, errs.CodeNotFound))
}

func TestListFiltersInactive(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, testConfig())

	seedProduct(t, db, "sku-1", 2500, 5, StatusActive)
	seedProduct(t, db, "sku-2", 3500, 5, StatusInactive)
	seedProduct(t, db, "sku-3", 4500, 5, StatusDraft)

	result, err := svc.List(&ListRequest{Page: 1, Limit: 20}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	all, err := svc.List(&ListRequest{Page: 1, Limit: 20}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
}

func TestListPriceFilterAndSort(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, testConfig())

	seedProduct(t, db, "sku-1", 1000, 5, StatusActive)
	seedProduct(t, db, "sku-2", 2000, 0, StatusActive)
	seedProduct(t, db, "sku-3", 3000, 5, StatusActive)

	result, err := svc.List(&ListRequest{
		Page: 1, Limit: 20,
		MinPrice: 1500,
		SortBy:   "price", SortOrder: "asc",
	}, false)
	require.NoError(t, err)
	require.Len(t, result.Products, 2)
	assert.Equal(t, int64(2000), result.Products[0].Price)

	inStock, err := svc.List(&ListRequest{Page: 1, Limit: 20, InStock: true}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inStock.Total)
}

func TestUpdateAllowList(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, testConfig())
	p := seedProduct(t, db, "sku-1", 2500, 5, StatusActive)

	newName := "Renamed"
	newPrice := int64(2999)
	got, err := svc.Update(p.ID, &UpdateProductRequest{Name: &newName, Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, int64(2999), got.Price)
	assert.Equal(t, 5, got.Stock) // Stock untouched by profile updates

	badPrice := int64(0)
	_, err = svc.Update(p.ID, &UpdateProductRequest{Price: &badPrice})
	assert.True(t, errs.IsCode(err, errs.CodeValidation))
}

func TestRestock(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, testConfig())
	p := seedProduct(t, db, "sku-1", 2500, 5, StatusActive)

	got, err := svc.Restock(p.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Stock)

	_, err = svc.Restock(p.ID, 0)
	assert.True(t, errs.IsCode(err, errs.CodeValidation))
}

func TestDeleteIsSoft(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, testConfig())
	p := seedProduct(t, db, "sku-1", 2500, 5, StatusActive)

	require.NoError(t, svc.Delete(p.ID))

	_, err := svc.FindProduct(p.ID)
	assert.True(t, errs.IsCode(err, errs.CodeNotFound))

	// Row is retained under soft delete
	var count int64
	db.Unscoped().Model(&Product{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
