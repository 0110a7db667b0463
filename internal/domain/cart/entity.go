// internal/domain/cart/entity.go
package cart

import (
	"time"
)

// Cart represents a user's cart header. Each user owns at most one cart,
// created lazily on first access and emptied (never deleted) at checkout.
type Cart struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CouponCode     string    `gorm:"size:50" json:"coupon_code"`
	DiscountAmount int64     `gorm:"not null;default:0" json:"discount_amount"` // In cents, frozen at coupon application
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// CartItem represents one cart line. A cart holds at most one line per
// (product, size, color) tuple; the price is a snapshot of the product
// price, refreshed on every mutation that touches the line.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_line" json:"cart_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_line" json:"product_id"`
	Size      string    `gorm:"size:20;uniqueIndex:idx_cart_line" json:"size"`
	Color     string    `gorm:"size:50;uniqueIndex:idx_cart_line" json:"color"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	Price     int64     `gorm:"not null" json:"price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// GuestCart represents a cart for anonymous sessions (stored in Redis)
type GuestCart struct {
	SessionID string          `json:"session_id"`
	Items     []GuestCartItem `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// GuestCartItem represents a cart line for anonymous sessions
type GuestCartItem struct {
	ProductID uint      `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Price     int64     `json:"price"`
	AddedAt   time.Time `json:"added_at"`
}

// CartTotals represents calculated cart totals
type CartTotals struct {
	ItemCount     int   `json:"item_count"`     // Number of distinct lines
	TotalQuantity int   `json:"total_quantity"` // Sum of all quantities
	Subtotal      int64 `json:"subtotal"`       // Σ(price × quantity)
	Discount      int64 `json:"discount"`
	Total         int64 `json:"total"` // max(0, subtotal - discount)
}
