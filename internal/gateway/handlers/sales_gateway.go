package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	catalog "bizdesk-system/internal/catalog/handler"
	customers "bizdesk-system/internal/customers/handler"
	sales "bizdesk-system/internal/sales/handler"
)

type SalesHTTPHandler struct {
	sales     *sales.SalesHandler
	catalog   *catalog.CatalogHandler
	customers *customers.CustomerHandler
}

func NewSalesHTTPHandler(salesHandler *sales.SalesHandler, catalogHandler *catalog.CatalogHandler, customerHandler *customers.CustomerHandler) *SalesHTTPHandler {
	return &SalesHTTPHandler{
		sales:     salesHandler,
		catalog:   catalogHandler,
		customers: customerHandler,
	}
}

type SaleItemRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Quantity  int32  `json:"quantity" binding:"required,min=1"`
	UnitPrice string `json:"unit_price" binding:"required"`
}

type CreateSaleRequest struct {
	CustomerID int64             `json:"customer_id" binding:"required"`
	TaxAmount  string            `json:"tax_amount,omitempty"`
	Status     string            `json:"status,omitempty" binding:"omitempty,oneof=pending completed cancelled"`
	Notes      *string           `json:"notes,omitempty"`
	SaleDate   *time.Time        `json:"sale_date,omitempty"`
	Items      []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateSaleRequest struct {
	CustomerID *int64     `json:"customer_id,omitempty"`
	Status     *string    `json:"status,omitempty" binding:"omitempty,oneof=pending completed cancelled"`
	Notes      *string    `json:"notes,omitempty"`
	SaleDate   *time.Time `json:"sale_date,omitempty"`
}

type ListSalesQuery struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=10"`
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=pending completed cancelled"`
}

func saleStatusCode(err error) int {
	switch {
	case errors.Is(err, sales.ErrSaleNotFound),
		errors.Is(err, sales.ErrCustomerNotFound),
		errors.Is(err, sales.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, sales.ErrNoItems),
		errors.Is(err, sales.ErrInvalidQuantity),
		errors.Is(err, sales.ErrInvalidUnitPrice),
		errors.Is(err, sales.ErrInvalidTaxAmount):
		return http.StatusBadRequest
	case errors.Is(err, sales.ErrInsufficientStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *SalesHTTPHandler) CreateSale(c *gin.Context) {
	var req CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	items := make([]sales.SaleItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, sales.SaleItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	sale, err := h.sales.CreateSale(ctx, sales.CreateSaleInput{
		CustomerID: req.CustomerID,
		TaxAmount:  req.TaxAmount,
		Status:     req.Status,
		Notes:      req.Notes,
		SaleDate:   req.SaleDate,
		Items:      items,
	})
	if err != nil {
		c.JSON(saleStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Sale created successfully", sale))
}

func (h *SalesHTTPHandler) GetSale(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid sale ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	sale, err := h.sales.GetSale(ctx, id)
	if err != nil {
		c.JSON(saleStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Sale retrieved successfully", sale))
}

func (h *SalesHTTPHandler) ListSales(c *gin.Context) {
	var query ListSalesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	list, total, err := h.sales.ListSales(ctx, sales.ListSalesInput{
		Search:   query.Search,
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Sales retrieved successfully", list,
		listMeta(total, query.Page, query.PageSize, map[string]interface{}{
			"search": query.Search,
			"status": query.Status,
		})))
}

// NewSaleForm returns the customers and products the sale form needs.
func (h *SalesHTTPHandler) NewSaleForm(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	activeCustomers, err := h.customers.ListActiveCustomers(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	activeProducts, err := h.catalog.ListActiveProducts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Form data retrieved successfully", map[string]interface{}{
		"customers": activeCustomers,
		"products":  activeProducts,
	}))
}

// EditSaleForm returns the sale plus the data the edit form needs.
func (h *SalesHTTPHandler) EditSaleForm(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid sale ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	sale, err := h.sales.GetSale(ctx, id)
	if err != nil {
		c.JSON(saleStatusCode(err), errorResponse(err.Error()))
		return
	}

	activeCustomers, err := h.customers.ListActiveCustomers(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	activeProducts, err := h.catalog.ListActiveProducts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Form data retrieved successfully", map[string]interface{}{
		"sale":      sale,
		"customers": activeCustomers,
		"products":  activeProducts,
	}))
}

func (h *SalesHTTPHandler) UpdateSale(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid sale ID"))
		return
	}

	var req UpdateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	sale, err := h.sales.UpdateSale(ctx, id, sales.UpdateSaleInput{
		CustomerID: req.CustomerID,
		Status:     req.Status,
		Notes:      req.Notes,
		SaleDate:   req.SaleDate,
	})
	if err != nil {
		c.JSON(saleStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Sale updated successfully", sale))
}

func (h *SalesHTTPHandler) DeleteSale(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid sale ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.sales.DeleteSale(ctx, id); err != nil {
		c.JSON(saleStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Sale deleted successfully", nil))
}
