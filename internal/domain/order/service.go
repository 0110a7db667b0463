// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/solara-commerce/solara-backend/internal/config"
	"github.com/solara-commerce/solara-backend/internal/domain/cart"
	"github.com/solara-commerce/solara-backend/internal/domain/coupon"
	"github.com/solara-commerce/solara-backend/internal/domain/product"
	"github.com/solara-commerce/solara-backend/internal/pkg/errs"
	"github.com/solara-commerce/solara-backend/internal/pkg/logger"
	"github.com/solara-commerce/solara-backend/internal/pkg/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventPublisher publishes order lifecycle events to the message broker
type EventPublisher interface {
	Publish(ctx context.Context, payload interface{}) error
}

// Service handles order business logic
type Service struct {
	db          *gorm.DB
	config      *config.Config
	cartService *cart.Service
	publisher   EventPublisher
	metrics     *metrics.StoreMetrics
}

// NewService creates a new order service. The publisher and metrics set
// may be nil.
func NewService(db *gorm.DB, cfg *config.Config, cartService *cart.Service, publisher EventPublisher, m *metrics.StoreMetrics) *Service {
	return &Service{
		db:          db,
		config:      cfg,
		cartService: cartService,
		publisher:   publisher,
		metrics:     m,
	}
}

// CreateOrderRequest represents checkout data
type CreateOrderRequest struct {
	ShippingAddress Address `json:"shipping_address" binding:"required"`
	PaymentMethod   string  `json:"payment_method" binding:"required"`
}

// ListRequest represents admin order list query parameters
type ListRequest struct {
	Page   int         `form:"page,default=1"`
	Limit  int         `form:"limit,default=20"`
	Status OrderStatus `form:"status"`
	UserID uint        `form:"user_id"`
	From   time.Time   `form:"from" time_format:"2006-01-02"`
	To     time.Time   `form:"to" time_format:"2006-01-02"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status            OrderStatus `json:"status" binding:"required"`
	Note              string      `json:"note"`
	TrackingNumber    string      `json:"tracking_number"`
	EstimatedDelivery *time.Time  `json:"estimated_delivery"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ListResponse represents a paginated order list
type ListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Stats represents order statistics
type Stats struct {
	TotalOrders  int64                 `json:"total_orders"`
	TotalRevenue int64                 `json:"total_revenue"` // In cents, excludes cancelled and refunded
	ByStatus     map[OrderStatus]int64 `json:"by_status"`
}

// OrderEvent is the payload published on order lifecycle changes
type OrderEvent struct {
	Type        string      `json:"type"`
	OrderID     uint        `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      uint        `json:"user_id"`
	Status      OrderStatus `json:"status"`
	TotalAmount int64       `json:"total_amount"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// CreateOrder converts the user's cart into an order. Everything runs in
// one transaction: stock decrements, order rows, status history and the
// cart wipe either all commit or none do.
func (s *Service) CreateOrder(userID uint, req *CreateOrderRequest) (*Order, error) {
	cartView, err := s.cartService.GetCart(&userID, "")
	if err != nil {
		return nil, err
	}
	if len(cartView.Items) == 0 {
		return nil, errs.New(errs.CodeEmptyCart, "cart is empty")
	}

	var created Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var subtotal int64
		items := make([]OrderItem, 0, len(cartView.Items))

		for _, line := range cartView.Items {
			prod, err := s.lockProduct(tx, line.ProductID)
			if err != nil {
				return err
			}
			if !prod.IsAvailable() {
				return errs.Newf(errs.CodeUnavailable, "product '%s' is not available", prod.Name)
			}

			if err := product.DecrementStock(tx, prod.ID, line.Quantity); err != nil {
				return err
			}

			lineTotal := prod.Price * int64(line.Quantity)
			subtotal += lineTotal
			items = append(items, OrderItem{
				ProductID:  prod.ID,
				Name:       prod.Name,
				SKU:        prod.SKU,
				Image:      prod.Image,
				Size:       line.Size,
				Color:      line.Color,
				Quantity:   line.Quantity,
				Price:      prod.Price,
				TotalPrice: lineTotal,
			})
		}

		shipping := s.shippingFor(subtotal)

		var discount int64
		if cartView.CouponCode != "" {
			// Re-resolve against the order subtotal; a code that was
			// valid when applied can only fail if the table changed
			discount, err = coupon.Discount(cartView.CouponCode, subtotal)
			if err != nil {
				return err
			}
		}

		total := subtotal + shipping - discount
		if total < 0 {
			total = 0
		}

		orderNumber, err := s.nextOrderNumber(tx)
		if err != nil {
			return err
		}

		created = Order{
			OrderNumber:     orderNumber,
			UserID:          userID,
			Status:          StatusPending,
			PaymentMethod:   req.PaymentMethod,
			PaymentStatus:   PaymentPending,
			Subtotal:        subtotal,
			ShippingAmount:  shipping,
			TaxAmount:       0,
			DiscountAmount:  discount,
			TotalAmount:     total,
			CouponCode:      cartView.CouponCode,
			ShippingAddress: req.ShippingAddress,
			Items:           items,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		history := OrderStatusHistory{
			OrderID:   created.ID,
			Status:    StatusPending,
			Note:      "Order placed",
			CreatedBy: userID,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to record order status: %w", err)
		}

		return s.cartService.ClearCartTx(tx, userID)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersCreated.Inc()
	}
	s.publishEvent("order.created", &created)

	return &created, nil
}

// GetOrder retrieves an order by ID with items and history
func (s *Service) GetOrder(orderID uint) (*Order, error) {
	var o Order
	err := s.db.Preload("Items").Preload("StatusHistory").First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "order not found")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// GetOrderByNumber retrieves an order by its order number
func (s *Service) GetOrderByNumber(orderNumber string) (*Order, error) {
	var o Order
	err := s.db.Preload("Items").Preload("StatusHistory").
		Where("order_number = ?", orderNumber).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "order not found")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// GetUserOrder retrieves an order and verifies ownership
func (s *Service) GetUserOrder(userID, orderID uint) (*Order, error) {
	o, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, errs.New(errs.CodeForbidden, "order belongs to another user")
	}
	return o, nil
}

// GetUserOrders retrieves the user's orders, newest first
func (s *Service) GetUserOrders(userID uint, page, limit int) (*ListResponse, error) {
	return s.list(&ListRequest{Page: page, Limit: limit, UserID: userID})
}

// GetOrders retrieves orders with filtering and pagination (admin)
func (s *Service) GetOrders(req *ListRequest) (*ListResponse, error) {
	return s.list(req)
}

// UpdateStatus moves an order along the lifecycle (admin)
func (s *Service) UpdateStatus(orderID uint, adminID uint, req *UpdateStatusRequest) (*Order, error) {
	o, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, req.Status) {
		return nil, errs.Newf(errs.CodeInvalidTransition,
			"cannot transition order from %s to %s", o.Status, req.Status)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": req.Status}

		switch req.Status {
		case StatusShipped:
			if req.TrackingNumber != "" {
				updates["tracking_number"] = req.TrackingNumber
			}
			if req.EstimatedDelivery != nil {
				updates["estimated_delivery"] = req.EstimatedDelivery
			}
		case StatusDelivered:
			now := time.Now().UTC()
			updates["delivered_at"] = &now
		case StatusCancelled:
			if err := s.restoreStock(tx, o); err != nil {
				return err
			}
		}

		if err := tx.Model(&Order{}).Where("id = ?", o.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		history := OrderStatusHistory{
			OrderID:   o.ID,
			Status:    req.Status,
			Note:      req.Note,
			CreatedBy: adminID,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to record order status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.Status == StatusCancelled {
		if s.metrics != nil {
			s.metrics.OrdersCancelled.Inc()
		}
		o.Status = StatusCancelled
		s.publishEvent("order.cancelled", o)
	}

	return s.GetOrder(o.ID)
}

// CancelOrder cancels an order on behalf of its owner or an admin.
// Only pending and confirmed orders can be cancelled; stock is restored.
func (s *Service) CancelOrder(orderID uint, requesterID uint, isAdmin bool, reason string) (*Order, error) {
	o, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && o.UserID != requesterID {
		return nil, errs.New(errs.CodeForbidden, "order belongs to another user")
	}
	if !o.CanBeCancelled() {
		return nil, errs.Newf(errs.CodeInvalidTransition,
			"order in status %s cannot be cancelled", o.Status)
	}

	note := reason
	if note == "" {
		note = "Order cancelled"
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.restoreStock(tx, o); err != nil {
			return err
		}
		if err := tx.Model(&Order{}).Where("id = ?", o.ID).
			Update("status", StatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		history := OrderStatusHistory{
			OrderID:   o.ID,
			Status:    StatusCancelled,
			Note:      note,
			CreatedBy: requesterID,
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersCancelled.Inc()
	}
	o.Status = StatusCancelled
	s.publishEvent("order.cancelled", o)

	return s.GetOrder(o.ID)
}

// GetStats aggregates order counts and revenue (admin)
func (s *Service) GetStats() (*Stats, error) {
	stats := &Stats{ByStatus: make(map[OrderStatus]int64)}

	type statusCount struct {
		Status OrderStatus
		Count  int64
	}
	var counts []statusCount
	err := s.db.Model(&Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.TotalOrders += c.Count
	}

	err = s.db.Model(&Order{}).
		Where("status NOT IN ?", []OrderStatus{StatusCancelled, StatusRefunded}).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&stats.TotalRevenue).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	return stats, nil
}

func (s *Service) list(req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Order{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID != 0 {
		query = query.Where("user_id = ?", req.UserID)
	}
	if !req.From.IsZero() {
		query = query.Where("created_at >= ?", req.From)
	}
	if !req.To.IsZero() {
		query = query.Where("created_at < ?", req.To.AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// nextOrderNumber allocates the next number in the current year's
// sequence. The upsert bumps the counter atomically, so two concurrent
// checkouts can never read the same value.
func (s *Service) nextOrderNumber(tx *gorm.DB) (string, error) {
	year := time.Now().UTC().Year()

	seq := OrderSequence{Year: year, LastValue: 1}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "year"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_value": gorm.Expr("last_value + 1"),
		}),
	}).Create(&seq).Error
	if err != nil {
		return "", fmt.Errorf("failed to advance order sequence: %w", err)
	}

	if err := tx.Where("year = ?", year).First(&seq).Error; err != nil {
		return "", fmt.Errorf("failed to read order sequence: %w", err)
	}

	return fmt.Sprintf("SOL-%d-%05d", year, seq.LastValue), nil
}

func (s *Service) shippingFor(subtotal int64) int64 {
	if subtotal >= s.config.Checkout.FreeShippingThreshold {
		return 0
	}
	return s.config.Checkout.FlatShippingRate
}

func (s *Service) lockProduct(tx *gorm.DB, productID uint) (*product.Product, error) {
	var prod product.Product
	err := tx.Where("id = ?", productID).First(&prod).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "product not found")
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &prod, nil
}

// restoreStock returns every line's quantity to inventory
func (s *Service) restoreStock(tx *gorm.DB, o *Order) error {
	items := o.Items
	if len(items) == 0 {
		if err := tx.Where("order_id = ?", o.ID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}
	}
	for _, item := range items {
		if err := product.IncrementStock(tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// publishEvent emits an order event best-effort. A broker outage never
// fails the request.
func (s *Service) publishEvent(eventType string, o *Order) {
	if s.publisher == nil {
		return
	}

	event := OrderEvent{
		Type:        eventType,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.publisher.Publish(context.Background(), event); err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"event":        eventType,
			"order_number": o.OrderNumber,
		}).Warn("Failed to publish order event")
	}
}
