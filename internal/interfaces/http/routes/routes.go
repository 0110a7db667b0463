// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/solara-commerce/solara-backend/internal/config"
	"github.com/solara-commerce/solara-backend/internal/domain/cart"
	"github.com/solara-commerce/solara-backend/internal/domain/order"
	"github.com/solara-commerce/solara-backend/internal/interfaces/http/handlers"
	"github.com/solara-commerce/solara-backend/internal/interfaces/http/middleware"
	"github.com/solara-commerce/solara-backend/internal/pkg/metrics"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config, publisher order.EventPublisher, m *metrics.StoreMetrics) {
	cartService := cart.NewService(db, redisClient, cfg, m)
	orderService := order.NewService(db, cfg, cartService, publisher, m)

	authHandler := handlers.NewAuthHandler(db, cfg)
	productHandler := handlers.NewProductHandler(db, cfg)
	cartHandler := handlers.NewCartHandler(db, redisClient, cfg, m)
	orderHandler := handlers.NewOrderHandler(orderService)

	// Public auth routes
	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	// Authenticated profile routes
	profile := rg.Group("/auth")
	profile.Use(middleware.AuthMiddleware(cfg))
	{
		profile.GET("/profile", authHandler.GetProfile)
		profile.PUT("/profile", authHandler.UpdateProfile)
		profile.PUT("/password", authHandler.ChangePassword)
	}

	// Public catalog routes
	products := rg.Group("/products")
	{
		products.GET("", productHandler.ListProducts)
		products.GET("/search", productHandler.ListProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.GET("/slug/:slug", productHandler.GetProductBySlug)
	}

	// Cart routes work for both guests and authenticated users
	cartRoutes := rg.Group("/cart")
	cartRoutes.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		cartRoutes.GET("", cartHandler.GetCart)
		cartRoutes.DELETE("", cartHandler.ClearCart)
		cartRoutes.POST("/items", cartHandler.AddToCart)
		cartRoutes.PUT("/items/:id", cartHandler.UpdateCartItem)
		cartRoutes.DELETE("/items/:id", cartHandler.RemoveFromCart)
	}

	// Cart routes requiring an account
	cartAuth := rg.Group("/cart")
	cartAuth.Use(middleware.AuthMiddleware(cfg))
	{
		cartAuth.POST("/coupon", cartHandler.ApplyCoupon)
		cartAuth.DELETE("/coupon", cartHandler.RemoveCoupon)
		cartAuth.POST("/sync", cartHandler.SyncCart)
	}

	// Order routes
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("", orderHandler.GetMyOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.GET("/number/:number", orderHandler.GetOrderByNumber)
		orders.PUT("/:id/cancel", orderHandler.CancelOrder)
	}

	// Admin routes
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.AdminMiddleware())
	{
		admin.GET("/products", productHandler.ListAllProducts)
		admin.POST("/products", productHandler.CreateProduct)
		admin.PUT("/products/:id", productHandler.UpdateProduct)
		admin.DELETE("/products/:id", productHandler.DeleteProduct)
		admin.POST("/products/:id/restock", productHandler.RestockProduct)

		admin.GET("/orders", orderHandler.ListOrders)
		admin.GET("/orders/stats", orderHandler.GetOrderStats)
		admin.GET("/orders/:id", orderHandler.GetOrder)
		admin.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)
	}
}
