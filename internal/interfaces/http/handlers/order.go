// internal/interfaces/http/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/solara-commerce/solara-backend/internal/domain/order"
	"github.com/solara-commerce/solara-backend/internal/interfaces/http/middleware"
	"github.com/solara-commerce/solara-backend/internal/interfaces/http/response"
	"github.com/solara-commerce/solara-backend/internal/pkg/errs"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		response.Error(c, errs.New(errs.CodeUnauthenticated, "authentication required"))
		return
	}

	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	o, err := h.orderService.CreateOrder(userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Order placed successfully", o)
}

// GetMyOrders handles GET /orders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		response.Error(c, errs.New(errs.CodeUnauthenticated, "authentication required"))
		return
	}

	var req struct {
		Page  int `form:"page,default=1"`
		Limit int `form:"limit,default=20"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.orderService.GetUserOrders(userID, req.Page, req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Orders, result.Pagination)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		response.Error(c, errs.New(errs.CodeUnauthenticated, "authentication required"))
		return
	}

	orderID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid order ID")
		return
	}

	var o *order.Order
	if middleware.IsAdminFromContext(c) {
		o, err = h.orderService.GetOrder(orderID)
	} else {
		o, err = h.orderService.GetUserOrder(userID, orderID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", o)
}

// GetOrderByNumber handles GET /orders/number/:number
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		response.Error(c, errs.New(errs.CodeUnauthenticated, "authentication required"))
		return
	}

	o, err := h.orderService.GetOrderByNumber(c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !middleware.IsAdminFromContext(c) && o.UserID != userID {
		response.Error(c, errs.New(errs.CodeForbidden, "order belongs to another user"))
		return
	}

	response.OK(c, "", o)
}

// CancelOrder handles PUT /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		response.Error(c, errs.New(errs.CodeUnauthenticated, "authentication required"))
		return
	}

	orderID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid order ID")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	c.ShouldBindJSON(&req) // Body is optional

	o, err := h.orderService.CancelOrder(orderID, userID, middleware.IsAdminFromContext(c), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order cancelled", o)
}

// Admin endpoints

// ListOrders handles GET /admin/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req order.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.orderService.GetOrders(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Orders, result.Pagination)
}

// UpdateOrderStatus handles PUT /admin/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	adminID, _ := middleware.GetUserIDFromContext(c)

	orderID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid order ID")
		return
	}

	var req order.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	o, err := h.orderService.UpdateStatus(orderID, adminID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order status updated", o)
}

// GetOrderStats handles GET /admin/orders/stats
func (h *OrderHandler) GetOrderStats(c *gin.Context) {
	stats, err := h.orderService.GetStats()
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", stats)
}
