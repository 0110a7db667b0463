// internal/domain/order/entity.go
package order

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents order status
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// transitions is the order lifecycle. Cancellation restores stock; the
// two terminal states have no exits.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// CanTransition reports whether an order may move from one status to
// another
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Address represents a shipping address
type Address struct {
	Name    string `gorm:"size:255" json:"name"`
	Line1   string `gorm:"size:255" json:"line1"`
	Line2   string `gorm:"size:255" json:"line2"`
	City    string `gorm:"size:100" json:"city"`
	State   string `gorm:"size:100" json:"state"`
	ZipCode string `gorm:"size:20" json:"zip_code"`
	Country string `gorm:"size:100" json:"country"`
	Phone   string `gorm:"size:20" json:"phone"`
}

// Order represents an order
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	Status      OrderStatus `gorm:"not null;default:'pending';size:20;index" json:"status"`

	PaymentMethod string        `gorm:"size:50" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'pending';size:20" json:"payment_status"`

	// Amounts in cents, frozen at creation
	Subtotal       int64  `gorm:"not null" json:"subtotal"`
	ShippingAmount int64  `gorm:"not null;default:0" json:"shipping_amount"`
	TaxAmount      int64  `gorm:"not null;default:0" json:"tax_amount"`
	DiscountAmount int64  `gorm:"not null;default:0" json:"discount_amount"`
	TotalAmount    int64  `gorm:"not null" json:"total_amount"`
	CouponCode     string `gorm:"size:50" json:"coupon_code"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	TrackingNumber    string     `gorm:"size:100" json:"tracking_number"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	DeliveredAt       *time.Time `json:"delivered_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem represents an order line. Everything about the product is
// snapshotted so later catalog edits never rewrite past orders.
type OrderItem struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	OrderID    uint   `gorm:"not null;index" json:"order_id"`
	ProductID  uint   `gorm:"not null" json:"product_id"`
	Name       string `gorm:"not null;size:255" json:"name"`
	SKU        string `gorm:"size:100" json:"sku"`
	Image      string `gorm:"size:500" json:"image"`
	Size       string `gorm:"size:20" json:"size"`
	Color      string `gorm:"size:50" json:"color"`
	Quantity   int    `gorm:"not null" json:"quantity"`
	Price      int64  `gorm:"not null" json:"price"`       // Unit price in cents
	TotalPrice int64  `gorm:"not null" json:"total_price"` // Price × quantity

	CreatedAt time.Time `json:"created_at"`
}

// OrderStatusHistory records every status the order has passed through
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Note      string      `gorm:"size:500" json:"note"`
	CreatedBy uint        `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderSequence backs order number generation. One row per year; the
// counter only ever moves forward, under an atomic upsert.
type OrderSequence struct {
	Year      int   `gorm:"primaryKey;autoIncrement:false" json:"year"`
	LastValue int64 `gorm:"not null;default:0" json:"last_value"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }
func (OrderSequence) TableName() string      { return "order_sequences" }

// CanBeCancelled reports whether a customer may still cancel the order
func (o *Order) CanBeCancelled() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

// IsTerminal reports whether the order has reached a final state
func (o *Order) IsTerminal() bool {
	return len(transitions[o.Status]) == 0
}
