// internal/domain/product/service.go
package product

import (
	"errors"
	"fmt"
	"strings"

	"github.com/solara-commerce/solara-backend/internal/config"
	"github.com/solara-commerce/solara-backend/internal/pkg/errs"
	"gorm.io/gorm"
)

// Service handles catalog business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ListRequest represents catalog list query parameters
type ListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Query     string `form:"q"`
	Category  string `form:"category"`
	MinPrice  int64  `form:"min_price"`
	MaxPrice  int64  `form:"max_price"`
	InStock   bool   `form:"in_stock"`
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`
}

// CreateProductRequest represents admin product creation data
type CreateProductRequest struct {
	SKU         string `json:"sku" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Price       int64  `json:"price" binding:"required,min=1"`
	Stock       int    `json:"stock" binding:"min=0"`
	Status      Status `json:"status"`
	Category    string `json:"category"`
}

// UpdateProductRequest represents admin product update data.
// Pointer fields distinguish "not sent" from zero values; only listed
// fields can be changed.
type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	Price       *int64  `json:"price"`
	Status      *Status `json:"status"`
	Category    *string `json:"category"`
}

// ListResponse represents a paginated product list
type ListResponse struct {
	Products []Product `json:"products"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}

// FindProduct retrieves a product by ID
func (s *Service) FindProduct(id uint) (*Product, error) {
	var prod Product
	result := s.db.Where("id = ?", id).First(&prod)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "product not found")
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", result.Error)
	}
	return &prod, nil
}

// GetBySlug retrieves an active product by slug
func (s *Service) GetBySlug(slug string) (*Product, error) {
	var prod Product
	result := s.db.Where("slug = ? AND status = ?", slug, StatusActive).First(&prod)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "product not found")
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", result.Error)
	}
	return &prod, nil
}

// List retrieves active products with filtering and pagination.
// Admin callers pass includeAll to see inactive and draft products too.
func (s *Service) List(req *ListRequest, includeAll bool) (*ListResponse, error) {
	var products []Product
	var total int64

	query := s.db.Model(&Product{})
	if !includeAll {
		query = query.Where("status = ?", StatusActive)
	}

	if req.Query != "" {
		pattern := "%" + strings.ToLower(req.Query) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}
	if req.MinPrice > 0 {
		query = query.Where("price >= ?", req.MinPrice)
	}
	if req.MaxPrice > 0 {
		query = query.Where("price <= ?", req.MaxPrice)
	}
	if req.InStock {
		query = query.Where("stock > 0")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query = query.Order(buildOrderClause(req.SortBy, req.SortOrder))
	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return &ListResponse{
		Products: products,
		Total:    total,
		Page:     req.Page,
		Limit:    req.Limit,
	}, nil
}

// Create creates a new product (admin)
func (s *Service) Create(req *CreateProductRequest) (*Product, error) {
	status := req.Status
	if status == "" {
		status = StatusDraft
	}
	if status != StatusActive && status != StatusInactive && status != StatusDraft {
		return nil, errs.Newf(errs.CodeValidation, "invalid product status: %s", status)
	}

	prod := Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Image:       req.Image,
		Price:       req.Price,
		Stock:       req.Stock,
		Status:      status,
		Category:    req.Category,
	}

	if err := s.db.Create(&prod).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &prod, nil
}

// Update applies the allow-listed fields to a product (admin)
func (s *Service) Update(id uint, req *UpdateProductRequest) (*Product, error) {
	prod, err := s.FindProduct(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Image != nil {
		updates["image"] = *req.Image
	}
	if req.Price != nil {
		if *req.Price < 1 {
			return nil, errs.New(errs.CodeValidation, "price must be at least 1 cent")
		}
		updates["price"] = *req.Price
	}
	if req.Status != nil {
		if *req.Status != StatusActive && *req.Status != StatusInactive && *req.Status != StatusDraft {
			return nil, errs.Newf(errs.CodeValidation, "invalid product status: %s", *req.Status)
		}
		updates["status"] = *req.Status
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}

	if len(updates) == 0 {
		return prod, nil
	}

	if err := s.db.Model(prod).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return prod, nil
}

// Delete soft-deletes a product (admin)
func (s *Service) Delete(id uint) error {
	result := s.db.Delete(&Product{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.New(errs.CodeNotFound, "product not found")
	}
	return nil
}

// Restock adds stock to a product (admin)
func (s *Service) Restock(id uint, quantity int) (*Product, error) {
	if quantity < 1 {
		return nil, errs.New(errs.CodeValidation, "restock quantity must be positive")
	}
	if err := IncrementStock(s.db, id, quantity); err != nil {
		return nil, err
	}
	return s.FindProduct(id)
}

// DecrementStock atomically subtracts quantity from a product's stock,
// failing if the remaining stock would go negative. Callers pass their
// transaction handle so the decrement participates in it.
func DecrementStock(db *gorm.DB, productID uint, quantity int) error {
	result := db.Model(&Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))

	if result.Error != nil {
		return fmt.Errorf("failed to decrement stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.Newf(errs.CodeInsufficientStock, "insufficient stock for product %d", productID)
	}
	return nil
}

// IncrementStock atomically adds quantity back to a product's stock
func IncrementStock(db *gorm.DB, productID uint, quantity int) error {
	result := db.Model(&Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))

	if result.Error != nil {
		return fmt.Errorf("failed to increment stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.New(errs.CodeNotFound, "product not found")
	}
	return nil
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"price":      true,
		"name":       true,
		"stock":      true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
