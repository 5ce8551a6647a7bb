package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bizdesk-system/internal/database/models"
	"bizdesk-system/internal/utils"
)

const (
	SALES_CACHE_PREFIX  = "sales:"
	DASHBOARD_CACHE_KEY = "dashboard:stats"
	PRODUCTS_CACHE_KEY  = "catalog:products"

	saleNumberAttempts = 5
)

var (
	ErrSaleNotFound      = errors.New("sale not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrProductNotFound   = errors.New("product not found or inactive")
	ErrNoItems           = errors.New("sale must have at least one item")
	ErrInvalidQuantity   = errors.New("item quantity must be a positive integer")
	ErrInvalidUnitPrice  = errors.New("unit price must be a non-negative amount")
	ErrInvalidTaxAmount  = errors.New("tax amount must be a non-negative amount")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrSaleNumberClash   = errors.New("could not allocate a unique sale number")
)

type SalesHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewSalesHandler(db *gorm.DB, redisClient *redis.Client) *SalesHandler {
	return &SalesHandler{
		db:    db,
		redis: redisClient,
	}
}

func (s *SalesHandler) InvalidateSalesCaches(ctx context.Context, saleIDs ...int64) {
	_ = s.redis.Del(ctx, DASHBOARD_CACHE_KEY, PRODUCTS_CACHE_KEY)
	for _, id := range saleIDs {
		_ = s.redis.Del(ctx, fmt.Sprintf("%s%d", SALES_CACHE_PREFIX, id))
	}
}

type SaleItemInput struct {
	ProductID int64
	Quantity  int32
	UnitPrice string
}

type CreateSaleInput struct {
	CustomerID int64
	TaxAmount  string
	Status     string
	Notes      *string
	SaleDate   *time.Time
	Items      []SaleItemInput
}

type UpdateSaleInput struct {
	CustomerID *int64
	Status     *string
	Notes      *string
	SaleDate   *time.Time
}

type ListSalesInput struct {
	Search   string
	Status   string
	Page     int
	PageSize int
}

// CreateSale persists a sale, its line items and the matching stock decrements
// in one transaction. Subtotal is the sum of line totals and
// total_amount = subtotal + tax_amount; the caller only supplies the tax.
// A decrement that would take a product below zero fails the whole sale.
func (s *SalesHandler) CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error) {
	if len(input.Items) == 0 {
		return nil, ErrNoItems
	}

	taxAmount := decimal.Zero
	if input.TaxAmount != "" {
		var err error
		taxAmount, err = decimal.NewFromString(input.TaxAmount)
		if err != nil || taxAmount.IsNegative() {
			return nil, ErrInvalidTaxAmount
		}
	}

	type pricedItem struct {
		input     SaleItemInput
		unitPrice decimal.Decimal
		lineTotal decimal.Decimal
	}

	subtotal := decimal.Zero
	priced := make([]pricedItem, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			return nil, ErrInvalidUnitPrice
		}
		lineTotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		subtotal = subtotal.Add(lineTotal)
		priced = append(priced, pricedItem{input: item, unitPrice: unitPrice, lineTotal: lineTotal})
	}

	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, input.CustomerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.SaleStatusPending
	}
	saleDate := time.Now()
	if input.SaleDate != nil {
		saleDate = *input.SaleDate
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	saleNumber, err := s.allocateSaleNumber(tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	sale := models.Sale{
		SaleNumber:  saleNumber,
		CustomerID:  input.CustomerID,
		Subtotal:    subtotal.StringFixed(2),
		TaxAmount:   taxAmount.StringFixed(2),
		TotalAmount: subtotal.Add(taxAmount).StringFixed(2),
		Status:      status,
		Notes:       input.Notes,
		SaleDate:    saleDate,
	}

	if err := tx.Create(&sale).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, item := range priced {
		var product models.Product
		if err := tx.Where("id = ? AND status = ?", item.input.ProductID, models.StatusActive).
			First(&product).Error; err != nil {
			tx.Rollback()
			if err == gorm.ErrRecordNotFound {
				return nil, fmt.Errorf("%w: product %d", ErrProductNotFound, item.input.ProductID)
			}
			return nil, err
		}

		saleItem := models.SaleItem{
			SaleID:     sale.ID,
			ProductID:  item.input.ProductID,
			Quantity:   item.input.Quantity,
			UnitPrice:  item.unitPrice.StringFixed(2),
			TotalPrice: item.lineTotal.StringFixed(2),
		}
		if err := tx.Create(&saleItem).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		// Conditional decrement so concurrent sales serialize on the row and
		// stock can never go negative.
		res := tx.Model(&models.Product{}).
			Where("id = ? AND quantity >= ?", item.input.ProductID, item.input.Quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", item.input.Quantity))
		if res.Error != nil {
			tx.Rollback()
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			tx.Rollback()
			return nil, fmt.Errorf("%w: product '%s' has %d left, requested %d",
				ErrInsufficientStock, product.Name, product.Quantity, item.input.Quantity)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.InvalidateSalesCaches(ctx, sale.ID)

	return s.GetSale(ctx, sale.ID)
}

// allocateSaleNumber draws random candidates until one is unused. The suffix
// space is large enough that a clash is rare, but a second check-and-insert in
// flight can still race; the unique index on sale_number is the backstop.
func (s *SalesHandler) allocateSaleNumber(tx *gorm.DB) (string, error) {
	for i := 0; i < saleNumberAttempts; i++ {
		candidate, err := utils.GenerateSaleNumber()
		if err != nil {
			return "", err
		}

		var existing models.Sale
		err = tx.Where("sale_number = ?", candidate).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrSaleNumberClash
}

// canonicalMoney re-fixes a money string to two decimals. Columns with numeric
// affinity can hand back "2" for a stored "2.00"; amounts leave this package
// canonical either way.
func canonicalMoney(raw string) string {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return raw
	}
	return d.StringFixed(2)
}

func canonicalizeSaleMoney(sale *models.Sale) {
	sale.Subtotal = canonicalMoney(sale.Subtotal)
	sale.TaxAmount = canonicalMoney(sale.TaxAmount)
	sale.TotalAmount = canonicalMoney(sale.TotalAmount)
	for i := range sale.SaleItems {
		sale.SaleItems[i].UnitPrice = canonicalMoney(sale.SaleItems[i].UnitPrice)
		sale.SaleItems[i].TotalPrice = canonicalMoney(sale.SaleItems[i].TotalPrice)
	}
}

func (s *SalesHandler) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("SaleItems.Product.Category").
		First(&sale, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	canonicalizeSaleMoney(&sale)
	return &sale, nil
}

func (s *SalesHandler) ListSales(ctx context.Context, input ListSalesInput) ([]models.Sale, int64, error) {
	var sales []models.Sale
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Sale{}).Preload("Customer")

	if input.Search != "" {
		term := "%" + strings.ToLower(input.Search) + "%"
		query = query.
			Joins("LEFT JOIN customers ON customers.id = sales.customer_id").
			Where("LOWER(sales.sale_number) LIKE ? OR LOWER(customers.name) LIKE ?", term, term)
	}
	if input.Status != "" {
		query = query.Where("sales.status = ?", input.Status)
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
	if err := query.Select("sales.*").
		Order("sales.sale_date DESC, sales.id DESC").
		Offset(offset).Limit(pageSize).
		Find(&sales).Error; err != nil {
		return nil, 0, err
	}

	for i := range sales {
		canonicalizeSaleMoney(&sales[i])
	}

	return sales, total, nil
}

// UpdateSale touches metadata only. Line items and amounts are immutable once
// the sale exists; reversal goes through DeleteSale.
func (s *SalesHandler) UpdateSale(ctx context.Context, id int64, input UpdateSaleInput) (*models.Sale, error) {
	var sale models.Sale
	if err := s.db.WithContext(ctx).First(&sale, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}

	if input.CustomerID != nil {
		var customer models.Customer
		if err := s.db.WithContext(ctx).First(&customer, *input.CustomerID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ErrCustomerNotFound
			}
			return nil, err
		}
		sale.CustomerID = *input.CustomerID
	}
	if input.Status != nil {
		sale.Status = *input.Status
	}
	if input.Notes != nil {
		sale.Notes = input.Notes
	}
	if input.SaleDate != nil {
		sale.SaleDate = *input.SaleDate
	}
	sale.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&sale).Error; err != nil {
		return nil, err
	}

	s.InvalidateSalesCaches(ctx, sale.ID)
	return s.GetSale(ctx, sale.ID)
}

// DeleteSale restores each item's quantity to its product, then removes the
// sale; the items go with the cascade. Restoration and deletion share one
// transaction so a crash cannot strand the compensating update.
func (s *SalesHandler) DeleteSale(ctx context.Context, id int64) error {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var sale models.Sale
	if err := tx.Preload("SaleItems").First(&sale, id).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return ErrSaleNotFound
		}
		return err
	}

	for _, item := range sale.SaleItems {
		res := tx.Model(&models.Product{}).
			Where("id = ?", item.ProductID).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", item.Quantity))
		if res.Error != nil {
			tx.Rollback()
			return res.Error
		}
	}

	if err := tx.Delete(&sale).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	s.InvalidateSalesCaches(ctx, id)
	return nil
}
