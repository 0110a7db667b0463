// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/solara-commerce/solara-backend/internal/domain/cart"
	"github.com/solara-commerce/solara-backend/internal/domain/order"
	"github.com/solara-commerce/solara-backend/internal/domain/product"
	"github.com/solara-commerce/solara-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Models in dependency order
	models := []interface{}{
		&user.User{},

		&product.Product{},

		&cart.Cart{},
		&cart.CartItem{},

		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},
		&order.OrderSequence{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_status_category ON products(status, category)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at)",

		"CREATE INDEX IF NOT EXISTS idx_cart_items_cart ON cart_items(cart_id)",
	}

	for _, index := range indexes {
		if err := m.db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Println("✅ Database indexes created successfully")
	return nil
}

// SeedInitialData seeds the database with initial development data
func (m *Migration) SeedInitialData() error {
	log.Println("🔄 Seeding initial data...")

	// Admin user
	var adminCount int64
	m.db.Model(&user.User{}).Where("is_admin = ?", true).Count(&adminCount)
	if adminCount == 0 {
		hashed, err := bcrypt.GenerateFromPassword([]byte("Admin1234!"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}

		admin := user.User{
			Email:     "admin@solara.store",
			Password:  string(hashed),
			FirstName: "Solara",
			LastName:  "Admin",
			IsActive:  true,
			IsAdmin:   true,
		}
		if err := m.db.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		log.Println("Seeded admin user admin@solara.store")
	}

	// Sample catalog
	var productCount int64
	m.db.Model(&product.Product{}).Count(&productCount)
	if productCount == 0 {
		products := []product.Product{
			{SKU: "SOL-TS-001", Name: "Classic Cotton Tee", Slug: "classic-cotton-tee", Description: "Everyday crew neck t-shirt.", Price: 2499, Stock: 120, Status: product.StatusActive, Category: "tops"},
			{SKU: "SOL-HD-001", Name: "Fleece Hoodie", Slug: "fleece-hoodie", Description: "Mid-weight fleece hoodie.", Price: 5999, Stock: 60, Status: product.StatusActive, Category: "tops"},
			{SKU: "SOL-JN-001", Name: "Slim Fit Jeans", Slug: "slim-fit-jeans", Description: "Stretch denim, slim cut.", Price: 7999, Stock: 45, Status: product.StatusActive, Category: "bottoms"},
			{SKU: "SOL-SN-001", Name: "Court Sneakers", Slug: "court-sneakers", Description: "Low-top leather sneakers.", Price: 10999, Stock: 30, Status: product.StatusActive, Category: "shoes"},
			{SKU: "SOL-CP-001", Name: "Canvas Cap", Slug: "canvas-cap", Description: "Adjustable six-panel cap.", Price: 1999, Stock: 0, Status: product.StatusInactive, Category: "accessories"},
		}
		if err := m.db.Create(&products).Error; err != nil {
			return fmt.Errorf("failed to seed products: %w", err)
		}
		log.Printf("Seeded %d products", len(products))
	}

	log.Println("✅ Initial data seeding completed")
	return nil
}
