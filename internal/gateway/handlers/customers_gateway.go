package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	customers "bizdesk-system/internal/customers/handler"
)

type CustomerHTTPHandler struct {
	customers *customers.CustomerHandler
}

func NewCustomerHTTPHandler(customerHandler *customers.CustomerHandler) *CustomerHTTPHandler {
	return &CustomerHTTPHandler{
		customers: customerHandler,
	}
}

type CreateCustomerRequest struct {
	Name    string  `json:"name" binding:"required"`
	Email   string  `json:"email" binding:"required,email"`
	Phone   *string `json:"phone,omitempty"`
	Company *string `json:"company,omitempty"`
	Status  string  `json:"status,omitempty" binding:"omitempty,oneof=active inactive"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty" binding:"omitempty,email"`
	Phone   *string `json:"phone,omitempty"`
	Company *string `json:"company,omitempty"`
	Status  *string `json:"status,omitempty" binding:"omitempty,oneof=active inactive"`
}

type ListCustomersQuery struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=10"`
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=active inactive"`
}

func customerStatusCode(err error) int {
	switch {
	case errors.Is(err, customers.ErrCustomerNotFound):
		return http.StatusNotFound
	case errors.Is(err, customers.ErrDuplicateEmail):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *CustomerHTTPHandler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	customer, err := h.customers.CreateCustomer(ctx, customers.CreateCustomerInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Status:  req.Status,
	})
	if err != nil {
		c.JSON(customerStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Customer created successfully", customer))
}

func (h *CustomerHTTPHandler) GetCustomer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid customer ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	customer, err := h.customers.GetCustomer(ctx, id)
	if err != nil {
		c.JSON(customerStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Customer retrieved successfully", customer))
}

func (h *CustomerHTTPHandler) ListCustomers(c *gin.Context) {
	var query ListCustomersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	list, total, err := h.customers.ListCustomers(ctx, customers.ListCustomersInput{
		Search:   query.Search,
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Customers retrieved successfully", list,
		listMeta(total, query.Page, query.PageSize, map[string]interface{}{
			"search": query.Search,
			"status": query.Status,
		})))
}

func (h *CustomerHTTPHandler) UpdateCustomer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid customer ID"))
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	customer, err := h.customers.UpdateCustomer(ctx, id, customers.UpdateCustomerInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Status:  req.Status,
	})
	if err != nil {
		c.JSON(customerStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Customer updated successfully", customer))
}

func (h *CustomerHTTPHandler) DeleteCustomer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid customer ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.customers.DeleteCustomer(ctx, id); err != nil {
		c.JSON(customerStatusCode(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Customer deleted successfully", nil))
}
