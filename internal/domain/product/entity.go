// internal/domain/product/entity.go
package product

import (
	"time"

	"gorm.io/gorm"
)

// Status represents product visibility
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDraft    Status = "draft"
)

// Product represents the product entity
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	SKU         string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	Image       string         `gorm:"size:500" json:"image"`
	Price       int64          `gorm:"not null" json:"price"` // Price in cents
	Stock       int            `gorm:"not null;default:0" json:"stock"`
	Status      Status         `gorm:"not null;default:'draft';size:20;index" json:"status"`
	Category    string         `gorm:"size:100;index" json:"category"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}

// IsAvailable reports whether the product can be added to carts and orders
func (p *Product) IsAvailable() bool {
	return p.Status == StatusActive
}

// IsInStock reports whether any stock remains
func (p *Product) IsInStock() bool {
	return p.Stock > 0
}

// GetFormattedPrice returns the price as a dollar amount
func (p *Product) GetFormattedPrice() float64 {
	return float64(p.Price) / 100
}
