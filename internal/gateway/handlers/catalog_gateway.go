package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	catalog "bizdesk-system/internal/catalog/handler"
)

type CatalogHTTPHandler struct {
	catalog *catalog.CatalogHandler
}

func NewCatalogHTTPHandler(catalogHandler *catalog.CatalogHandler) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{
		catalog: catalogHandler,
	}
}

// Request structs
type CreateCategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	Status      string  `json:"status,omitempty" binding:"omitempty,oneof=active inactive"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" binding:"omitempty,oneof=active inactive"`
}

type CreateProductRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   *string `json:"description,omitempty"`
	SKU           string  `json:"sku" binding:"required"`
	Price         string  `json:"price" binding:"required"`
	Quantity      int32   `json:"quantity" binding:"omitempty,min=0"`
	MinStockLevel int32   `json:"min_stock_level" binding:"omitempty,min=0"`
	CategoryID    int64   `json:"category_id" binding:"required"`
	Status        string  `json:"status,omitempty" binding:"omitempty,oneof=active inactive"`
}

type UpdateProductRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	SKU           *string `json:"sku,omitempty"`
	Price         *string `json:"price,omitempty"`
	Quantity      *int32  `json:"quantity,omitempty" binding:"omitempty,min=0"`
	MinStockLevel *int32  `json:"min_stock_level,omitempty" binding:"omitempty,min=0"`
	CategoryID    *int64  `json:"category_id,omitempty"`
	Status        *string `json:"status,omitempty" binding:"omitempty,oneof=active inactive"`
}

// Query structs
type ListCategoriesQuery struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=10"`
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=active inactive"`
}

type ListProductsQuery struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=10"`
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=active inactive"`
	Category int64  `form:"category"`
	LowStock bool   `form:"low_stock"`
}

func categoryStatusCode(err error) int {
	switch {
	case errors.Is(err, catalog.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalidPrice):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func productStatusCode(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, catalog.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrDuplicateSKU):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrInvalidPrice):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// --- Categories ---

func (h *CatalogHTTPHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	category, err := h.catalog.CreateCategory(ctx, catalog.CreateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		c.JSON(categoryStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Category created successfully", category))
}

func (h *CatalogHTTPHandler) GetCategory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid category ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	category, err := h.catalog.GetCategory(ctx, id)
	if err != nil {
		c.JSON(categoryStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Category retrieved successfully", category))
}

func (h *CatalogHTTPHandler) ListCategories(c *gin.Context) {
	var query ListCategoriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	categories, total, err := h.catalog.ListCategories(ctx, catalog.ListCategoriesInput{
		Search:   query.Search,
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Categories retrieved successfully", categories,
		listMeta(total, query.Page, query.PageSize, map[string]interface{}{
			"search": query.Search,
			"status": query.Status,
		})))
}

func (h *CatalogHTTPHandler) UpdateCategory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid category ID"))
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	category, err := h.catalog.UpdateCategory(ctx, id, catalog.UpdateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		c.JSON(categoryStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Category updated successfully", category))
}

func (h *CatalogHTTPHandler) DeleteCategory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid category ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.catalog.DeleteCategory(ctx, id); err != nil {
		c.JSON(categoryStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Category deleted successfully", nil))
}

// --- Products ---

func (h *CatalogHTTPHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	product, err := h.catalog.CreateProduct(ctx, catalog.CreateProductInput{
		Name:          req.Name,
		Description:   req.Description,
		SKU:           req.SKU,
		Price:         req.Price,
		Quantity:      req.Quantity,
		MinStockLevel: req.MinStockLevel,
		CategoryID:    req.CategoryID,
		Status:        req.Status,
	})
	if err != nil {
		c.JSON(productStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Product created successfully", product))
}

func (h *CatalogHTTPHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		c.JSON(productStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Product retrieved successfully", product))
}

func (h *CatalogHTTPHandler) ListProducts(c *gin.Context) {
	var query ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	products, total, err := h.catalog.ListProducts(ctx, catalog.ListProductsInput{
		Search:     query.Search,
		Status:     query.Status,
		CategoryID: query.Category,
		LowStock:   query.LowStock,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Products retrieved successfully", products,
		listMeta(total, query.Page, query.PageSize, map[string]interface{}{
			"search":    query.Search,
			"status":    query.Status,
			"category":  query.Category,
			"low_stock": query.LowStock,
		})))
}

// NewProductForm returns the data the product form needs.
func (h *CatalogHTTPHandler) NewProductForm(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	categories, err := h.catalog.ListActiveCategories(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Form data retrieved successfully", map[string]interface{}{
		"categories": categories,
	}))
}

// EditProductForm returns the product plus the data the edit form needs.
func (h *CatalogHTTPHandler) EditProductForm(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		c.JSON(productStatusCode(err), errorResponse(err.Error()))
		return
	}

	categories, err := h.catalog.ListActiveCategories(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Form data retrieved successfully", map[string]interface{}{
		"product":    product,
		"categories": categories,
	}))
}

func (h *CatalogHTTPHandler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	product, err := h.catalog.UpdateProduct(ctx, id, catalog.UpdateProductInput{
		Name:          req.Name,
		Description:   req.Description,
		SKU:           req.SKU,
		Price:         req.Price,
		Quantity:      req.Quantity,
		MinStockLevel: req.MinStockLevel,
		CategoryID:    req.CategoryID,
		Status:        req.Status,
	})
	if err != nil {
		c.JSON(productStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Product updated successfully", product))
}

func (h *CatalogHTTPHandler) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.catalog.DeleteProduct(ctx, id); err != nil {
		c.JSON(productStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Product deleted successfully", nil))
}
