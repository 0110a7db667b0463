// internal/domain/cart/service.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/solara-commerce/solara-backend/internal/config"
	"github.com/solara-commerce/solara-backend/internal/domain/coupon"
	"github.com/solara-commerce/solara-backend/internal/domain/product"
	"github.com/solara-commerce/solara-backend/internal/pkg/errs"
	"github.com/solara-commerce/solara-backend/internal/pkg/metrics"
	"gorm.io/gorm"
)

// Service handles cart business logic
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
	metrics     *metrics.StoreMetrics
}

// NewService creates a new cart service. The metrics set may be nil.
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, m *metrics.StoreMetrics) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		metrics:     m,
	}
}

// LineResponse represents a cart line with product details
type LineResponse struct {
	ProductID uint             `json:"product_id"`
	Size      string           `json:"size"`
	Color     string           `json:"color"`
	Quantity  int              `json:"quantity"`
	Price     int64            `json:"price"`
	Product   *product.Product `json:"product,omitempty"`
	AddedAt   time.Time        `json:"added_at"`
}

// CartResponse represents a shopping cart with items and summary
type CartResponse struct {
	SessionID  string         `json:"session_id,omitempty"`
	UserID     *uint          `json:"user_id,omitempty"`
	CouponCode string         `json:"coupon_code,omitempty"`
	Items      []LineResponse `json:"items"`
	Totals     CartTotals     `json:"totals"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// UpdateItemRequest represents update cart item request
type UpdateItemRequest struct {
	Quantity int    `json:"quantity"`
	Size     string `json:"size"`
	Color    string `json:"color"`
}

// ApplyCouponRequest represents a coupon application request
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// GetOrCreate returns the user's cart header, creating an empty one on
// first access
func (s *Service) GetOrCreate(userID uint) (*Cart, error) {
	var c Cart
	err := s.db.Where("user_id = ?", userID).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}

	c = Cart{UserID: userID}
	if err := s.db.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return &c, nil
}

// GetCart retrieves the cart for a user or guest session. Lines whose
// product has gone missing or inactive are dropped and the removal is
// persisted, so every view is consistent with the catalog.
func (s *Service) GetCart(userID *uint, sessionID string) (*CartResponse, error) {
	if userID != nil {
		return s.getUserCart(*userID)
	}
	return s.getGuestCartResponse(sessionID)
}

// AddItem adds an item to the cart, merging into an existing line with
// the same product, size and color
func (s *Service) AddItem(userID *uint, sessionID string, req *AddItemRequest) (*CartResponse, error) {
	prod, err := s.availableProduct(req.ProductID)
	if err != nil {
		return nil, err
	}

	if userID != nil {
		err = s.addToUserCart(*userID, prod, req)
	} else {
		err = s.addToGuestCart(sessionID, prod, req)
	}
	if err != nil {
		return nil, err
	}

	s.countOperation("add_item")
	return s.GetCart(userID, sessionID)
}

// UpdateQuantity updates the quantity of a cart line. A quantity of zero
// or less removes the line; values above the per-line cap are clamped.
// The stock check is best-effort: if the product cannot be loaded the
// update proceeds, and the next cart read heals the line.
func (s *Service) UpdateQuantity(userID *uint, sessionID string, productID uint, size, color string, quantity int) (*CartResponse, error) {
	if quantity <= 0 {
		return s.RemoveItem(userID, sessionID, productID, size, color)
	}

	if cap := s.config.Checkout.MaxQuantityPerLine; quantity > cap {
		quantity = cap
	}

	prod, err := s.lookupProduct(productID)
	if err == nil && quantity > prod.Stock {
		return nil, errs.Newf(errs.CodeInsufficientStock, "insufficient stock. Available: %d", prod.Stock)
	}

	var price *int64
	if err == nil {
		price = &prod.Price
	}

	if userID != nil {
		err = s.updateUserCartLine(*userID, productID, size, color, quantity, price)
	} else {
		err = s.updateGuestCartLine(sessionID, productID, size, color, quantity, price)
	}
	if err != nil {
		return nil, err
	}

	s.countOperation("update_quantity")
	return s.GetCart(userID, sessionID)
}

// RemoveItem removes a cart line unconditionally
func (s *Service) RemoveItem(userID *uint, sessionID string, productID uint, size, color string) (*CartResponse, error) {
	var err error
	if userID != nil {
		err = s.removeUserCartLine(*userID, productID, size, color)
	} else {
		err = s.removeGuestCartLine(sessionID, productID, size, color)
	}
	if err != nil {
		return nil, err
	}

	s.countOperation("remove_item")
	return s.GetCart(userID, sessionID)
}

// ClearCart removes all lines and resets any applied coupon
func (s *Service) ClearCart(userID *uint, sessionID string) error {
	s.countOperation("clear")

	if userID != nil {
		c, err := s.GetOrCreate(*userID)
		if err != nil {
			return err
		}
		return s.clearUserCart(s.db, c)
	}

	ctx := context.Background()
	return s.redisClient.Del(ctx, guestCartKey(sessionID)).Err()
}

// ClearCartTx empties a user's cart inside an existing transaction.
// Used by order creation so the cart wipe commits with the order.
func (s *Service) ClearCartTx(tx *gorm.DB, userID uint) error {
	var c Cart
	err := tx.Where("user_id = ?", userID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to retrieve cart: %w", err)
	}
	return s.clearUserCart(tx, &c)
}

// ApplyCoupon applies a static coupon code to the user's cart. The
// discount is computed against the subtotal at application time and not
// re-evaluated afterwards.
func (s *Service) ApplyCoupon(userID uint, code string) (*CartResponse, error) {
	view, err := s.getUserCart(userID)
	if err != nil {
		return nil, err
	}
	if view.Totals.ItemCount == 0 {
		return nil, errs.New(errs.CodeEmptyCart, "cart is empty")
	}

	discount, err := coupon.Discount(code, view.Totals.Subtotal)
	if err != nil {
		return nil, err
	}

	c, err := s.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"coupon_code":     coupon.Normalize(code),
		"discount_amount": discount,
	}
	if err := s.db.Model(c).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to apply coupon: %w", err)
	}

	s.countOperation("apply_coupon")
	return s.getUserCart(userID)
}

// RemoveCoupon resets the cart's coupon and discount
func (s *Service) RemoveCoupon(userID uint) (*CartResponse, error) {
	c, err := s.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"coupon_code":     "",
		"discount_amount": 0,
	}
	if err := s.db.Model(c).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to remove coupon: %w", err)
	}

	s.countOperation("remove_coupon")
	return s.getUserCart(userID)
}

// SyncGuestCart merges the guest session's cart into the user's cart and
// clears the guest cart. Partial application is the contract: lines for
// missing or inactive products are skipped, quantities are capped at the
// per-line limit and at current stock, and the merge itself never fails.
func (s *Service) SyncGuestCart(userID uint, sessionID string) (*CartResponse, error) {
	guestCart, err := s.getGuestCart(sessionID)
	if err == nil && len(guestCart.Items) > 0 {
		if err := s.MergeGuestItems(userID, guestCart.Items); err != nil {
			return nil, err
		}
		ctx := context.Background()
		s.redisClient.Del(ctx, guestCartKey(sessionID))
	}

	s.countOperation("sync_guest_cart")
	return s.getUserCart(userID)
}

// MergeGuestItems merges guest lines into the user's cart, skipping
// lines that can no longer be honored
func (s *Service) MergeGuestItems(userID uint, items []GuestCartItem) error {
	c, err := s.GetOrCreate(userID)
	if err != nil {
		return err
	}

	cap := s.config.Checkout.MaxQuantityPerLine
	for _, guestItem := range items {
		prod, err := s.availableProduct(guestItem.ProductID)
		if err != nil {
			continue // Skip missing or inactive products
		}

		merged := guestItem.Quantity
		var existing CartItem
		found := s.db.Where("cart_id = ? AND product_id = ? AND size = ? AND color = ?",
			c.ID, guestItem.ProductID, guestItem.Size, guestItem.Color).First(&existing).Error == nil
		if found {
			merged += existing.Quantity
		}

		if merged > cap {
			merged = cap
		}
		if merged > prod.Stock {
			merged = prod.Stock
		}
		if merged < 1 {
			continue
		}

		if found {
			existing.Quantity = merged
			existing.Price = prod.Price
			if err := s.db.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to merge cart line: %w", err)
			}
		} else {
			line := CartItem{
				CartID:    c.ID,
				ProductID: guestItem.ProductID,
				Size:      guestItem.Size,
				Color:     guestItem.Color,
				Quantity:  merged,
				Price:     prod.Price,
			}
			if err := s.db.Create(&line).Error; err != nil {
				return fmt.Errorf("failed to create cart line: %w", err)
			}
		}
	}

	return nil
}

// User cart internals

func (s *Service) getUserCart(userID uint) (*CartResponse, error) {
	c, err := s.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	var items []CartItem
	if err := s.db.Where("cart_id = ?", c.ID).Order("created_at").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve cart items: %w", err)
	}

	lines := make([]LineResponse, 0, len(items))
	for _, item := range items {
		prod, err := s.availableProduct(item.ProductID)
		if err != nil {
			// Self-healing read: the product is gone or inactive
			s.db.Delete(&CartItem{}, item.ID)
			continue
		}
		lines = append(lines, LineResponse{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Product:   prod,
			AddedAt:   item.CreatedAt,
		})
	}

	return &CartResponse{
		UserID:     &userID,
		CouponCode: c.CouponCode,
		Items:      lines,
		Totals:     calculateTotals(lines, c.DiscountAmount),
		UpdatedAt:  c.UpdatedAt,
	}, nil
}

func (s *Service) addToUserCart(userID uint, prod *product.Product, req *AddItemRequest) error {
	c, err := s.GetOrCreate(userID)
	if err != nil {
		return err
	}

	var existing CartItem
	result := s.db.Where("cart_id = ? AND product_id = ? AND size = ? AND color = ?",
		c.ID, req.ProductID, req.Size, req.Color).First(&existing)

	merged := req.Quantity
	if result.Error == nil {
		merged += existing.Quantity
	}

	if err := s.checkLineLimits(prod, merged); err != nil {
		return err
	}

	if result.Error == nil {
		existing.Quantity = merged
		existing.Price = prod.Price // Re-snapshot in case the price changed
		return s.db.Save(&existing).Error
	}

	line := CartItem{
		CartID:    c.ID,
		ProductID: req.ProductID,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  merged,
		Price:     prod.Price,
	}
	return s.db.Create(&line).Error
}

func (s *Service) updateUserCartLine(userID uint, productID uint, size, color string, quantity int, price *int64) error {
	c, err := s.GetOrCreate(userID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"quantity": quantity}
	if price != nil {
		updates["price"] = *price
	}

	result := s.db.Model(&CartItem{}).
		Where("cart_id = ? AND product_id = ? AND size = ? AND color = ?", c.ID, productID, size, color).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update cart line: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.New(errs.CodeNotFound, "item not found in cart")
	}
	return nil
}

func (s *Service) removeUserCartLine(userID uint, productID uint, size, color string) error {
	c, err := s.GetOrCreate(userID)
	if err != nil {
		return err
	}
	return s.db.Where("cart_id = ? AND product_id = ? AND size = ? AND color = ?",
		c.ID, productID, size, color).Delete(&CartItem{}).Error
}

func (s *Service) clearUserCart(db *gorm.DB, c *Cart) error {
	if err := db.Where("cart_id = ?", c.ID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	updates := map[string]interface{}{
		"coupon_code":     "",
		"discount_amount": 0,
	}
	if err := db.Model(c).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to reset cart: %w", err)
	}
	return nil
}

// Guest cart internals

func guestCartKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

func (s *Service) getGuestCart(sessionID string) (*GuestCart, error) {
	if sessionID == "" {
		return nil, errs.New(errs.CodeValidation, "session ID required for guest cart")
	}

	ctx := context.Background()
	cartData, err := s.redisClient.Get(ctx, guestCartKey(sessionID)).Result()
	if err == redis.Nil {
		now := time.Now().UTC()
		return &GuestCart{
			SessionID: sessionID,
			Items:     []GuestCartItem{},
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	} else if err != nil {
		return nil, err
	}

	var guestCart GuestCart
	if err := json.Unmarshal([]byte(cartData), &guestCart); err != nil {
		return nil, err
	}
	return &guestCart, nil
}

func (s *Service) saveGuestCart(sessionID string, guestCart *GuestCart) error {
	ctx := context.Background()
	cartData, err := json.Marshal(guestCart)
	if err != nil {
		return err
	}
	return s.redisClient.Set(ctx, guestCartKey(sessionID), cartData, s.config.Checkout.GuestCartTTL).Err()
}

func (s *Service) getGuestCartResponse(sessionID string) (*CartResponse, error) {
	guestCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return nil, err
	}

	lines := make([]LineResponse, 0, len(guestCart.Items))
	healed := make([]GuestCartItem, 0, len(guestCart.Items))
	for _, item := range guestCart.Items {
		prod, err := s.availableProduct(item.ProductID)
		if err != nil {
			continue // Dropped on the persisted write below
		}
		healed = append(healed, item)
		lines = append(lines, LineResponse{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Product:   prod,
			AddedAt:   item.AddedAt,
		})
	}

	if len(healed) != len(guestCart.Items) {
		guestCart.Items = healed
		guestCart.UpdatedAt = time.Now().UTC()
		if err := s.saveGuestCart(sessionID, guestCart); err != nil {
			return nil, err
		}
	}

	return &CartResponse{
		SessionID: sessionID,
		Items:     lines,
		Totals:    calculateTotals(lines, 0),
		UpdatedAt: guestCart.UpdatedAt,
	}, nil
}

func (s *Service) addToGuestCart(sessionID string, prod *product.Product, req *AddItemRequest) error {
	guestCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return err
	}

	merged := req.Quantity
	index := -1
	for i := range guestCart.Items {
		item := &guestCart.Items[i]
		if item.ProductID == req.ProductID && item.Size == req.Size && item.Color == req.Color {
			merged += item.Quantity
			index = i
			break
		}
	}

	if err := s.checkLineLimits(prod, merged); err != nil {
		return err
	}

	if index >= 0 {
		guestCart.Items[index].Quantity = merged
		guestCart.Items[index].Price = prod.Price
	} else {
		guestCart.Items = append(guestCart.Items, GuestCartItem{
			ProductID: req.ProductID,
			Size:      req.Size,
			Color:     req.Color,
			Quantity:  merged,
			Price:     prod.Price,
			AddedAt:   time.Now().UTC(),
		})
	}

	guestCart.UpdatedAt = time.Now().UTC()
	return s.saveGuestCart(sessionID, guestCart)
}

func (s *Service) updateGuestCartLine(sessionID string, productID uint, size, color string, quantity int, price *int64) error {
	guestCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return err
	}

	for i := range guestCart.Items {
		item := &guestCart.Items[i]
		if item.ProductID == productID && item.Size == size && item.Color == color {
			item.Quantity = quantity
			if price != nil {
				item.Price = *price
			}
			guestCart.UpdatedAt = time.Now().UTC()
			return s.saveGuestCart(sessionID, guestCart)
		}
	}

	return errs.New(errs.CodeNotFound, "item not found in cart")
}

func (s *Service) removeGuestCartLine(sessionID string, productID uint, size, color string) error {
	guestCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return err
	}

	for i := range guestCart.Items {
		item := guestCart.Items[i]
		if item.ProductID == productID && item.Size == size && item.Color == color {
			guestCart.Items = append(guestCart.Items[:i], guestCart.Items[i+1:]...)
			guestCart.UpdatedAt = time.Now().UTC()
			return s.saveGuestCart(sessionID, guestCart)
		}
	}

	return nil
}

// Shared helpers

// availableProduct loads a product and rejects anything not purchasable
func (s *Service) availableProduct(productID uint) (*product.Product, error) {
	prod, err := s.lookupProduct(productID)
	if err != nil {
		return nil, err
	}
	if !prod.IsAvailable() {
		return nil, errs.Newf(errs.CodeUnavailable, "product '%s' is not available", prod.Name)
	}
	return prod, nil
}

func (s *Service) lookupProduct(productID uint) (*product.Product, error) {
	var prod product.Product
	err := s.db.Where("id = ?", productID).First(&prod).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "product not found")
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &prod, nil
}

// checkLineLimits validates the merged line quantity against the per-line
// cap and current stock
func (s *Service) checkLineLimits(prod *product.Product, merged int) error {
	if cap := s.config.Checkout.MaxQuantityPerLine; merged > cap {
		return errs.Newf(errs.CodeQuantityLimit, "maximum %d of the same item per order", cap)
	}
	if merged > prod.Stock {
		return errs.Newf(errs.CodeInsufficientStock, "insufficient stock. Available: %d", prod.Stock)
	}
	return nil
}

func (s *Service) countOperation(operation string) {
	if s.metrics != nil {
		s.metrics.CartOperations.WithLabelValues(operation).Inc()
	}
}

func calculateTotals(lines []LineResponse, discount int64) CartTotals {
	var totals CartTotals

	totals.ItemCount = len(lines)
	for _, line := range lines {
		totals.TotalQuantity += line.Quantity
		totals.Subtotal += line.Price * int64(line.Quantity)
	}

	totals.Discount = discount
	totals.Total = totals.Subtotal - totals.Discount
	if totals.Total < 0 {
		totals.Total = 0
	}

	return totals
}
