// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/solara-commerce/solara-backend/internal/config"
	"github.com/solara-commerce/solara-backend/internal/domain/cart"
	"github.com/solara-commerce/solara-backend/internal/interfaces/http/middleware"
	"github.com/solara-commerce/solara-backend/internal/interfaces/http/response"
	"github.com/solara-commerce/solara-backend/internal/pkg/errs"
	"github.com/solara-commerce/solara-backend/internal/pkg/metrics"
	"gorm.io/gorm"
)

const sessionCookieName = "cart_session_id"

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
	config      *config.Config
}

// NewCartHandler creates a new cart handler
func NewCartHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, m *metrics.StoreMetrics) *CartHandler {
	return &CartHandler{
		cartService: cart.NewService(db, redisClient, cfg, m),
		config:      cfg,
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID := h.optionalUserID(c)
	sessionID := h.getOrCreateSessionID(c)

	cartResponse, err := h.cartService.GetCart(userID, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", cartResponse)
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID := h.optionalUserID(c)
	sessionID := h.getOrCreateSessionID(c)

	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cartResponse, err := h.cartService.AddItem(userID, sessionID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Item added to cart", cartResponse)
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID := h.optionalUserID(c)
	sessionID := h.getOrCreateSessionID(c)

	productID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	var req cart.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cartResponse, err := h.cartService.UpdateQuantity(userID, sessionID, productID, req.Size, req.Color, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Cart updated", cartResponse)
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	userID := h.optionalUserID(c)
	sessionID := h.getOrCreateSessionID(c)

	productID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	cartResponse, err := h.cartService.RemoveItem(userID, sessionID, productID, c.Query("size"), c.Query("color"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Item removed from cart", cartResponse)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID := h.optionalUserID(c)
	sessionID := h.getOrCreateSessionID(c)

	if err := h.cartService.ClearCart(userID, sessionID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Cart cleared", nil)
}

// ApplyCoupon handles POST /cart/coupon
func (h *CartHandler) ApplyCoupon(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		response.Error(c, errs.New(errs.CodeUnauthenticated, "sign in to apply a coupon"))
		return
	}

	var req cart.ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cartResponse, err := h.cartService.ApplyCoupon(userID, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Coupon applied", cartResponse)
}

// RemoveCoupon handles DELETE /cart/coupon
func (h *CartHandler) RemoveCoupon(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		response.Error(c, errs.New(errs.CodeUnauthenticated, "sign in to manage coupons"))
		return
	}

	cartResponse, err := h.cartService.RemoveCoupon(userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Coupon removed", cartResponse)
}

// SyncCart handles POST /cart/sync. Called after login to fold the
// guest session's cart into the account cart.
func (h *CartHandler) SyncCart(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		response.Error(c, errs.New(errs.CodeUnauthenticated, "authentication required"))
		return
	}

	sessionID, err := c.Cookie(sessionCookieName)
	if err != nil || sessionID == "" {
		// Nothing to merge
		cartResponse, err := h.cartService.GetCart(&userID, "")
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, "Cart synced", cartResponse)
		return
	}

	cartResponse, err := h.cartService.SyncGuestCart(userID, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Cart synced", cartResponse)
}

func (h *CartHandler) optionalUserID(c *gin.Context) *uint {
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		return &userID
	}
	return nil
}

// getOrCreateSessionID manages the guest cart session cookie
func (h *CartHandler) getOrCreateSessionID(c *gin.Context) string {
	if sessionID, err := c.Cookie(sessionCookieName); err == nil && sessionID != "" {
		return sessionID
	}

	sessionID := uuid.New().String()
	maxAge := int(h.config.Checkout.GuestCartTTL.Seconds())
	c.SetCookie(sessionCookieName, sessionID, maxAge, "/", "", h.config.IsProduction(), true)
	return sessionID
}
