// internal/interfaces/http/handlers/product.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/solara-commerce/solara-backend/internal/config"
	"github.com/solara-commerce/solara-backend/internal/domain/product"
	"github.com/solara-commerce/solara-backend/internal/interfaces/http/response"
	"github.com/solara-commerce/solara-backend/internal/pkg/errs"
	"gorm.io/gorm"
)

// ProductHandler handles catalog endpoints
type ProductHandler struct {
	productService *product.Service
	config         *config.Config
}

// NewProductHandler creates a new product handler
func NewProductHandler(db *gorm.DB, cfg *config.Config) *ProductHandler {
	return &ProductHandler{
		productService: product.NewService(db, cfg),
		config:         cfg,
	}
}

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var req product.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.productService.List(&req, false)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Products, gin.H{
		"page":  result.Page,
		"limit": result.Limit,
		"total": result.Total,
	})
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	prod, err := h.productService.FindProduct(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !prod.IsAvailable() {
		response.Error(c, errs.New(errs.CodeNotFound, "product not found"))
		return
	}

	response.OK(c, "", prod)
}

// GetProductBySlug handles GET /products/slug/:slug
func (h *ProductHandler) GetProductBySlug(c *gin.Context) {
	prod, err := h.productService.GetBySlug(c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", prod)
}

// Admin endpoints

// ListAllProducts handles GET /admin/products
func (h *ProductHandler) ListAllProducts(c *gin.Context) {
	var req product.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.productService.List(&req, true)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Products, gin.H{
		"page":  result.Page,
		"limit": result.Limit,
		"total": result.Total,
	})
}

// CreateProduct handles POST /admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req product.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	prod, err := h.productService.Create(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Product created successfully", prod)
}

// UpdateProduct handles PUT /admin/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	var req product.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	prod, err := h.productService.Update(id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Product updated successfully", prod)
}

// DeleteProduct handles DELETE /admin/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	if err := h.productService.Delete(id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Product deleted successfully", nil)
}

// RestockProduct handles POST /admin/products/:id/restock
func (h *ProductHandler) RestockProduct(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	var req struct {
		Quantity int `json:"quantity" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	prod, err := h.productService.Restock(id, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Product restocked successfully", prod)
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
