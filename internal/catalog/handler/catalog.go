package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bizdesk-system/internal/database/models"
)

const (
	CATALOG_CACHE_PREFIX       = "catalog:"
	CATALOG_PRODUCTS_CACHE_KEY = "catalog:products"
	CATALOG_CATEGORY_CACHE_KEY = "catalog:categories"
	DASHBOARD_CACHE_KEY        = "dashboard:stats"
	CACHE_TTL_SHORT            = time.Minute
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateSKU     = errors.New("sku already in use")
	ErrInvalidPrice     = errors.New("price must be a non-negative amount")
)

type CatalogHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCatalogHandler(db *gorm.DB, redisClient *redis.Client) *CatalogHandler {
	return &CatalogHandler{
		db:    db,
		redis: redisClient,
	}
}

func (s *CatalogHandler) InvalidateCatalogCaches(ctx context.Context) {
	_ = s.redis.Del(ctx, CATALOG_PRODUCTS_CACHE_KEY, CATALOG_CATEGORY_CACHE_KEY, DASHBOARD_CACHE_KEY)
}

// normalizePrice validates a money string and fixes it to two decimal places.
func normalizePrice(raw string) (string, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return "", ErrInvalidPrice
	}
	return d.StringFixed(2), nil
}

// --- Categories ---

type CreateCategoryInput struct {
	Name        string
	Description *string
	Status      string
}

type UpdateCategoryInput struct {
	Name        *string
	Description *string
	Status      *string
}

type ListCategoriesInput struct {
	Search   string
	Status   string
	Page     int
	PageSize int
}

func (s *CatalogHandler) CreateCategory(ctx context.Context, input CreateCategoryInput) (*models.Category, error) {
	status := input.Status
	if status == "" {
		status = models.StatusActive
	}

	category := models.Category{
		Name:        input.Name,
		Description: input.Description,
		Status:      status,
	}

	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}

	s.InvalidateCatalogCaches(ctx)
	return &category, nil
}

func (s *CatalogHandler) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (s *CatalogHandler) ListCategories(ctx context.Context, input ListCategoriesInput) ([]models.Category, int64, error) {
	var categories []models.Category
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Category{})

	if input.Search != "" {
		term := "%" + strings.ToLower(input.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", term, term)
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
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&categories).Error; err != nil {
		return nil, 0, err
	}

	return categories, total, nil
}

// ListActiveCategories backs the product form's category dropdown.
func (s *CatalogHandler) ListActiveCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusActive).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *CatalogHandler) UpdateCategory(ctx context.Context, id int64, input UpdateCategoryInput) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	if input.Name != nil {
		category.Name = *input.Name
	}
	if input.Description != nil {
		category.Description = input.Description
	}
	if input.Status != nil {
		category.Status = *input.Status
	}
	category.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&category).Error; err != nil {
		return nil, err
	}

	s.InvalidateCatalogCaches(ctx)
	return &category, nil
}

// DeleteCategory removes the category; its products (and their sale items)
// follow through the cascade constraints.
func (s *CatalogHandler) DeleteCategory(ctx context.Context, id int64) error {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrCategoryNotFound
		}
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&category).Error; err != nil {
		return err
	}

	s.InvalidateCatalogCaches(ctx)
	return nil
}

// --- Products ---

type CreateProductInput struct {
	Name          string
	Description   *string
	SKU           string
	Price         string
	Quantity      int32
	MinStockLevel int32
	CategoryID    int64
	Status        string
}

type UpdateProductInput struct {
	Name          *string
	Description   *string
	SKU           *string
	Price         *string
	Quantity      *int32
	MinStockLevel *int32
	CategoryID    *int64
	Status        *string
}

type ListProductsInput struct {
	Search     string
	Status     string
	CategoryID int64
	LowStock   bool
	Page       int
	PageSize   int
}

func (s *CatalogHandler) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	price, err := normalizePrice(input.Price)
	if err != nil {
		return nil, err
	}

	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, input.CategoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	var existing models.Product
	err = s.db.WithContext(ctx).Where("sku = ?", input.SKU).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateSKU
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.StatusActive
	}

	product := models.Product{
		Name:          input.Name,
		Description:   input.Description,
		SKU:           input.SKU,
		Price:         price,
		Quantity:      input.Quantity,
		MinStockLevel: input.MinStockLevel,
		CategoryID:    input.CategoryID,
		Status:        status,
	}

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}

	s.InvalidateCatalogCaches(ctx)
	product.Category = &category
	return &product, nil
}

func (s *CatalogHandler) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Category").First(&product, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

type cachedProductPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
}

// isDefaultProductPage reports whether the listing is the unfiltered first
// page, the only one worth caching (it backs the landing table).
func isDefaultProductPage(input ListProductsInput) bool {
	return input.Search == "" && input.Status == "" && input.CategoryID == 0 &&
		!input.LowStock && input.Page <= 1 && (input.PageSize <= 0 || input.PageSize == 10)
}

func (s *CatalogHandler) ListProducts(ctx context.Context, input ListProductsInput) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	defaultPage := isDefaultProductPage(input)
	if defaultPage {
		if raw, err := s.redis.Get(ctx, CATALOG_PRODUCTS_CACHE_KEY).Result(); err == nil {
			var page cachedProductPage
			if err := json.Unmarshal([]byte(raw), &page); err == nil {
				return page.Products, page.Total, nil
			}
		}
	}

	query := s.db.WithContext(ctx).Model(&models.Product{}).Preload("Category")

	if input.Search != "" {
		term := "%" + strings.ToLower(input.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(description) LIKE ?", term, term, term)
	}
	if input.CategoryID != 0 {
		query = query.Where("category_id = ?", input.CategoryID)
	}
	if input.Status != "" {
		query = query.Where("status = ?", input.Status)
	}
	if input.LowStock {
		query = query.Where("quantity <= min_stock_level")
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
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	if defaultPage {
		if payload, err := json.Marshal(cachedProductPage{Products: products, Total: total}); err == nil {
			_ = s.redis.Set(ctx, CATALOG_PRODUCTS_CACHE_KEY, payload, CACHE_TTL_SHORT)
		}
	}

	return products, total, nil
}

// ListActiveProducts backs the sale form's product dropdown.
func (s *CatalogHandler) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Preload("Category").
		Where("status = ?", models.StatusActive).
		Order("name ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *CatalogHandler) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if input.SKU != nil && *input.SKU != product.SKU {
		var existing models.Product
		err := s.db.WithContext(ctx).Where("sku = ? AND id <> ?", *input.SKU, id).First(&existing).Error
		if err == nil {
			return nil, ErrDuplicateSKU
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		product.SKU = *input.SKU
	}
	if input.Price != nil {
		price, err := normalizePrice(*input.Price)
		if err != nil {
			return nil, err
		}
		product.Price = price
	}
	if input.CategoryID != nil {
		var category models.Category
		if err := s.db.WithContext(ctx).First(&category, *input.CategoryID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
		product.CategoryID = *input.CategoryID
	}
	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Quantity != nil {
		product.Quantity = *input.Quantity
	}
	if input.MinStockLevel != nil {
		product.MinStockLevel = *input.MinStockLevel
	}
	if input.Status != nil {
		product.Status = *input.Status
	}
	product.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&product).Error; err != nil {
		return nil, err
	}

	s.InvalidateCatalogCaches(ctx)
	return &product, nil
}

func (s *CatalogHandler) DeleteProduct(ctx context.Context, id int64) error {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrProductNotFound
		}
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&product).Error; err != nil {
		return err
	}

	s.InvalidateCatalogCaches(ctx)
	return nil
}
