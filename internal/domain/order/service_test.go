package order

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/solara-commerce/solara-backend/internal/config"
	"github.com/solara-commerce/solara-backend/internal/domain/cart"
	"github.com/solara-commerce/solara-backend/internal/domain/product"
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

	require.NoError(t, db.AutoMigrate(
		&product.Product{},
		&cart.Cart{}, &cart.CartItem{},
		&Order{}, &OrderItem{}, &OrderStatusHistory{}, &OrderSequence{},
	))
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

func newTestServices(t *testing.T) (*Service, *cart.Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	cfg := testConfig()
	cartService := cart.NewService(db, nil, cfg, nil)
	return NewService(db, cfg, cartService, nil, nil), cartService, db
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, price int64, stock int) *product.Product {
	t.Helper()
	p := &product.Product{
		SKU:    sku,
		Name:   "Test " + sku,
		Slug:   "test-" + sku,
		Price:  price,
		Stock:  stock,
		Status: product.StatusActive,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func testAddress() Address {
	return Address{
		Name:    "Ada Lovelace",
		Line1:   "12 Analytical Way",
		City:    "London",
		ZipCode: "EC1A",
		Country: "GB",
	}
}

func fillCart(t *testing.T, cartService *cart.Service, userID uint, productID uint, quantity int) {
	t.Helper()
	uid := userID
	_, err := cartService.AddItem(&uid, "", &cart.AddItemRequest{ProductID: productID, Quantity: quantity})
	require.NoError(t, err)
}

func TestCreateOrder(t *testing.T) {
	svc, cartService, db := newTestServices(t)
	tee := seedProduct(t, db, "sku-tee", 3000, 10)
	fillCart(t, cartService, 1, tee.ID, 2)

	o, err := svc.CreateOrder(1, &CreateOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.NoError(t, err)

	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("SOL-%d-00001", year), o.OrderNumber)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, int64(6000), o.Subtotal)
	assert.Equal(t, int64(2500), o.ShippingAmount) // Below the free shipping threshold
	assert.Equal(t, int64(0), o.TaxAmount)
	assert.Equal(t, int64(8500), o.TotalAmount)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Test sku-tee", o.Items[0].Name)
	assert.Equal(t, int64(3000), o.Items[0].Price)
	assert.Equal(t, int64(6000), o.Items[0].TotalPrice)

	// Stock was decremented
	var p product.Product
	require.NoError(t, db.First(&p, tee.ID).Error)
	assert.Equal(t, 8, p.Stock)

	// Cart was emptied
	uid := uint(1)
	view, err := cartService.GetCart(&uid, "")
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	// Initial status history was recorded
	full, err := svc.GetOrder(o.ID)
	require.NoError(t, err)
	require.Len(t, full.StatusHistory, 1)
	assert.Equal(t, StatusPending, full.StatusHistory[0].Status)
}

func TestCreateOrderFreeShipping(t *testing.T) {
	svc, cartService, db := newTestServices(t)
	hoodie := seedProduct(t, db, "sku-hoodie", 6000, 10)
	fillCart(t, cartService, 1, hoodie.ID, 2) // 12000, above the 10000 threshold

	o, err := svc.CreateOrder(1, &CreateOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), o.ShippingAmount)
	assert.Equal(t, int64(12000), o.TotalAmount)
}

func TestCreateOrderWithCoupon(t *testing.T) {
	svc, cartService, db := newTestServices(t)
	hoodie := seedProduct(t, db, "sku-hoodie", 5000, 10)
	fillCart(t, cartService, 1, hoodie.ID, 4) // 20000 subtotal

	_, err := cartService.ApplyCoupon(1, "SAVE10")
	require.NoError(t, err)

	o, err := svc.CreateOrder(1, &CreateOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", o.CouponCode)
	assert.Equal(t, int64(2000), o.DiscountAmount)
	assert.Equal(t, int64(18000), o.TotalAmount) // Free shipping, 10% off
}

func TestCreateOrderEmptyCart(t *testing.T) {
	svc, _, _ := newTestServices(t)

	_, err := svc.CreateOrder(1, &CreateOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeEmptyCart))
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	svc, cartService, db := newTestServices(t)
	tee := seedProduct(t, db, "sku-tee", 3000, 5)
	hoodie := seedProduct(t, db, "sku-hoodie", 6000, 5)
	fillCart(t, cartService, 1, tee.ID, 2)
	fillCart(t, cartService, 1, hoodie.ID, 3)

	// Stock sells out between carting and checkout
	require.NoError(t, db.Model(hoodie).Update("stock", 1).Error)

	_, err := svc.CreateOrder(1, &CreateOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeInsufficientStock))

	// The first line's decrement was rolled back
	var p product.Product
	require.NoError(t, db.First(&p, tee.ID).Error)
	assert.Equal(t, 5, p.Stock)

	// No order rows were written
	var count int64
	db.Model(&Order{}).Count(&count)
	assert.Zero(t, count)

	// Cart survives the failed checkout
	uid := uint(1)
	view, err := cartService.GetCart(&uid, "")
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestOrderNumberSequence(t *testing.T) {
	svc, cartService, db := newTestServices(t)
	tee := seedProduct(t, db, "sku-tee", 3000, 50)

	year := time.Now().UTC().Year()
	for i := 1; i <= 3; i++ {
		fillCart(t, cartService, 1, tee.ID, 1)
		o, err := svc.CreateOrder(1, &CreateOrderRequest{
			ShippingAddress: testAddress(),
			PaymentMethod:   "card",
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("SOL-%d-%05d", year, i), o.OrderNumber)
	}
}

func TestUpdateStatusLifecycle(t *testing.T) {
	svc, cartService, db := newTestServices(t)
	tee := seedProduct(t, db, "sku-tee", 3000, 10)
	fillCart(t, cartService, 1, tee.ID, 1)

	o, err := svc.CreateOrder(1, &CreateOrderRequest{ShippingAddress: testAddress(), PaymentMethod: "card"})
	require.NoError(t, err)

	// Skipping straight to shipped is rejected
	_, err = svc.UpdateStatus(o.ID, 99, &UpdateStatusRequest{Status: StatusShipped})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeInvalidTransition))

	o2, err := svc.UpdateStatus(o.ID, 99, &UpdateStatusRequest{Status: StatusConfirmed, Note: "payment ok"})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o2.Status)

	o2, err = svc.UpdateStatus(o.ID, 99, &UpdateStatusRequest{Status: StatusProcessing})
	require.NoError(t, err)

	o2, err = svc.UpdateStatus(o.ID, 99, &UpdateStatusRequest{Status: StatusShipped, TrackingNumber: "TRK-1"})
	require.NoError(t, err)
	assert.Equal(t, "TRK-1", o2.TrackingNumber)

	o2, err = svc.UpdateStatus(o.ID, 99, &UpdateStatusRequest{Status: StatusDelivered})
	require.NoError(t, err)
	require.NotNil(t, o2.DeliveredAt)

	// Every hop was recorded
	assert.Len(t, o2.StatusHistory, 5)
}

func TestCancelOrderRestoresStock(t *testing.T) {
	svc, cartService, db := newTestServices(t)
	tee := seedProduct(t, db, "sku-tee", 3000, 10)
	fillCart(t, cartService, 1, tee.ID, 4)

	o, err := svc.CreateOrder(1, &CreateOrderRequest{ShippingAddress: testAddress(), PaymentMethod: "card"})
	require.NoError(t, err)

	var p product.Product
	require.NoError(t, db.First(&p, tee.ID).Error)
	require.Equal(t, 6, p.Stock)

	cancelled, err := svc.CancelOrder(o.ID, 1, false, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	require.NoError(t, db.First(&p, tee.ID).Error)
	assert.Equal(t, 10, p.Stock)

	// A second cancel is rejected
	_, err = svc.CancelOrder(o.ID, 1, false, "")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeInvalidTransition))

	// Stock is not restored twice
	require.NoError(t, db.First(&p, tee.ID).Error)
	assert.Equal(t, 10, p.Stock)
}

func TestCancelOrderOwnership(t *testing.T) {
	svc, cartService, db := newTestServices(t)
	tee := seedProduct(t, db, "sku-tee", 3000, 10)
	fillCart(t, cartService, 1, tee.ID, 1)

	o, err := svc.CreateOrder(1, &CreateOrderRequest{ShippingAddress: testAddress(), PaymentMethod: "card"})
	require.NoError(t, err)

	_, err = svc.CancelOrder(o.ID, 2, false, "")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeForbidden))

	// An admin may cancel on the customer's behalf
	_, err = svc.CancelOrder(o.ID, 2, true, "support request")
	require.NoError(t, err)
}

func TestCancelOrderAfterProcessing(t *testing.T) {
	svc, cartService, db := newTestServices(t)
	tee := seedProduct(t, db, "sku-tee", 3000, 10)
	fillCart(t, cartService, 1, tee.ID, 1)

	o, err := svc.CreateOrder(1, &CreateOrderRequest{ShippingAddress: testAddress(), PaymentMethod: "card"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(o.ID, 99, &UpdateStatusRequest{Status: StatusConfirmed})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(o.ID, 99, &UpdateStatusRequest{Status: StatusProcessing})
	require.NoError(t, err)

	// Customers can only cancel pending or confirmed orders
	_, err = svc.CancelOrder(o.ID, 1, false, "")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeInvalidTransition))
}

func TestGetUserOrderOwnership(t *testing.T) {
	svc, cartService, db := newTestServices(t)
	tee := seedProduct(t, db, "sku-tee", 3000, 10)
	fillCart(t, cartService, 1, tee.ID, 1)

	o, err := svc.CreateOrder(1, &CreateOrderRequest{ShippingAddress: testAddress(), PaymentMethod: "card"})
	require.NoError(t, err)

	_, err = svc.GetUserOrder(1, o.ID)
	require.NoError(t, err)

	_, err = svc.GetUserOrder(2, o.ID)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeForbidden))
}

func TestGetOrdersFiltering(t *testing.T) {
	svc, cartService, db := newTestServices(t)
	tee := seedProduct(t, db, "sku-tee", 3000, 50)

	for _, userID := range []uint{1, 1, 2} {
		fillCart(t, cartService, userID, tee.ID, 1)
		_, err := svc.CreateOrder(userID, &CreateOrderRequest{ShippingAddress: testAddress(), PaymentMethod: "card"})
		require.NoError(t, err)
	}

	all, err := svc.GetOrders(&ListRequest{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Pagination.Total)

	mine, err := svc.GetUserOrders(1, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Pagination.Total)

	pending, err := svc.GetOrders(&ListRequest{Page: 1, Limit: 20, Status: StatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(3), pending.Pagination.Total)
}

func TestGetStats(t *testing.T) {
	svc, cartService, db := newTestServices(t)
	tee := seedProduct(t, db, "sku-tee", 3000, 50)

	var orders []*Order
	for i := 0; i < 3; i++ {
		fillCart(t, cartService, 1, tee.ID, 1)
		o, err := svc.CreateOrder(1, &CreateOrderRequest{ShippingAddress: testAddress(), PaymentMethod: "card"})
		require.NoError(t, err)
		orders = append(orders, o)
	}

	_, err := svc.CancelOrder(orders[2].ID, 1, false, "")
	require.NoError(t, err)

	stats, err := svc.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.ByStatus[StatusPending])
	assert.Equal(t, int64(1), stats.ByStatus[StatusCancelled])
	// Cancelled orders are excluded from revenue
	assert.Equal(t, orders[0].TotalAmount+orders[1].TotalAmount, stats.TotalRevenue)
}
