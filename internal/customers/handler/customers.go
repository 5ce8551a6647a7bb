package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"bizdesk-system/internal/database/models"
)

const (
	CUSTOMERS_CACHE_KEY = "customers:list"
	CUSTOMERS_CACHE_TTL = time.Minute
	DASHBOARD_CACHE_KEY = "dashboard:stats"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrDuplicateEmail   = errors.New("email already in use")
)

type CustomerHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCustomerHandler(db *gorm.DB, redisClient *redis.Client) *CustomerHandler {
	return &CustomerHandler{
		db:    db,
		redis: redisClient,
	}
}

func (s *CustomerHandler) InvalidateCustomerCaches(ctx context.Context) {
	_ = s.redis.Del(ctx, CUSTOMERS_CACHE_KEY, DASHBOARD_CACHE_KEY)
}

type CreateCustomerInput struct {
	Name    string
	Email   string
	Phone   *string
	Company *string
	Status  string
}

type UpdateCustomerInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Company *string
	Status  *string
}

type ListCustomersInput struct {
	Search   string
	Status   string
	Page     int
	PageSize int
}

func (s *CustomerHandler) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	var existing models.Customer
	err := s.db.WithContext(ctx).Where("email = ?", input.Email).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateEmail
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.StatusActive
	}

	customer := models.Customer{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Company: input.Company,
		Status:  status,
	}

	if err := s.db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}

	s.InvalidateCustomerCaches(ctx)
	return &customer, nil
}

func (s *CustomerHandler) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

type cachedCustomerPage struct {
	Customers []models.Customer `json:"customers"`
	Total     int64             `json:"total"`
}

// isDefaultCustomerPage reports whether the listing is the unfiltered first
// page, the only one cached.
func isDefaultCustomerPage(input ListCustomersInput) bool {
	return input.Search == "" && input.Status == "" &&
		input.Page <= 1 && (input.PageSize <= 0 || input.PageSize == 10)
}

func (s *CustomerHandler) ListCustomers(ctx context.Context, input ListCustomersInput) ([]models.Customer, int64, error) {
	var customers []models.Customer
	var total int64

	defaultPage := isDefaultCustomerPage(input)
	if defaultPage {
		if raw, err := s.redis.Get(ctx, CUSTOMERS_CACHE_KEY).Result(); err == nil {
			var page cachedCustomerPage
			if err := json.Unmarshal([]byte(raw), &page); err == nil {
				return page.Customers, page.Total, nil
			}
		}
	}

	query := s.db.WithContext(ctx).Model(&models.Customer{})

	if input.Search != "" {
		term := "%" + strings.ToLower(input.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?", term, term, term)
	}
	if input.Status != "" {
		query = query.Where("status = ?", input.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	page := input.Page
	if page <= 0 {
		page = 1
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	if defaultPage {
		if payload, err := json.Marshal(cachedCustomerPage{Customers: customers, Total: total}); err == nil {
			_ = s.redis.Set(ctx, CUSTOMERS_CACHE_KEY, payload, CUSTOMERS_CACHE_TTL)
		}
	}

	return customers, total, nil
}

// ListActiveCustomers backs the sale form's customer dropdown.
func (s *CustomerHandler) ListActiveCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusActive).
		Order("name ASC").
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *CustomerHandler) UpdateCustomer(ctx context.Context, id int64, input UpdateCustomerInput) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	if input.Email != nil && *input.Email != customer.Email {
		var existing models.Customer
		err := s.db.WithContext(ctx).Where("email = ? AND id <> ?", *input.Email, id).First(&existing).Error
		if err == nil {
			return nil, ErrDuplicateEmail
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		customer.Email = *input.Email
	}
	if input.Name != nil {
		customer.Name = *input.Name
	}
	if input.Phone != nil {
		customer.Phone = input.Phone
	}
	if input.Company != nil {
		customer.Company = input.Company
	}
	if input.Status != nil {
		customer.Status = *input.Status
	}
	customer.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&customer).Error; err != nil {
		return nil, err
	}

	s.InvalidateCustomerCaches(ctx)
	return &customer, nil
}

// DeleteCustomer removes the customer; their sales and sale items go with the
// cascade. Stock is not restored here, reversal is a sale-level operation.
func (s *CustomerHandler) DeleteCustomer(ctx context.Context, id int64) error {
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrCustomerNotFound
		}
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&customer).Error; err != nil {
		return err
	}

	s.InvalidateCustomerCaches(ctx)
	return nil
}
