package handler

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bizdesk-system/internal/database/models"
)

func newTestHandler(t *testing.T) (*SalesHandler, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Customer{},
		&models.Product{},
		&models.Sale{},
		&models.SaleItem{},
	))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return NewSalesHandler(db, redisClient), db
}

func seedCustomer(t *testing.T, db *gorm.DB, name, email string) models.Customer {
	t.Helper()
	customer := models.Customer{Name: name, Email: email, Status: models.StatusActive}
	require.NoError(t, db.Create(&customer).Error)
	return customer
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, quantity, minStock int32, price string) models.Product {
	t.Helper()
	category := models.Category{Name: "General", Status: models.StatusActive}
	require.NoError(t, db.Create(&category).Error)

	product := models.Product{
		Name:          "Product " + sku,
		SKU:           sku,
		Price:         price,
		Quantity:      quantity,
		MinStockLevel: minStock,
		CategoryID:    category.ID,
		Status:        models.StatusActive,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestCreateSale_ComputesTotalsAndDecrementsStock(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	customer := seedCustomer(t, db, "Ada", "ada@example.com")
	product := seedProduct(t, db, "ABC-123", 10, 5, "9.99")

	sale, err := s.CreateSale(ctx, CreateSaleInput{
		CustomerID: customer.ID,
		TaxAmount:  "2.00",
		Status:     models.SaleStatusCompleted,
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 3, UnitPrice: "9.99"},
		},
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^SALE-[A-Z0-9]{8}$`), sale.SaleNumber)
	assert.Equal(t, "29.97", sale.Subtotal)
	assert.Equal(t, "2.00", sale.TaxAmount)
	assert.Equal(t, "31.97", sale.TotalAmount)

	require.Len(t, sale.SaleItems, 1)
	assert.Equal(t, "29.97", sale.SaleItems[0].TotalPrice)
	assert.Equal(t, "9.99", sale.SaleItems[0].UnitPrice)
	require.NotNil(t, sale.Customer)
	assert.Equal(t, "Ada", sale.Customer.Name)

	var updated models.Product
	require.NoError(t, db.First(&updated, product.ID).Error)
	assert.Equal(t, int32(7), updated.Quantity)
}

func TestCreateSale_MultipleItems(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	customer := seedCustomer(t, db, "Grace", "grace@example.com")
	p1 := seedProduct(t, db, "P-1", 20, 2, "1.50")
	p2 := seedProduct(t, db, "P-2", 8, 2, "10.00")

	sale, err := s.CreateSale(ctx, CreateSaleInput{
		CustomerID: customer.ID,
		Items: []SaleItemInput{
			{ProductID: p1.ID, Quantity: 4, UnitPrice: "1.50"},
			{ProductID: p2.ID, Quantity: 2, UnitPrice: "10.00"},
		},
	})
	require.NoError(t, err)

	// 4*1.50 + 2*10.00, no tax supplied
	assert.Equal(t, "26.00", sale.Subtotal)
	assert.Equal(t, "0.00", sale.TaxAmount)
	assert.Equal(t, "26.00", sale.TotalAmount)
	assert.Equal(t, models.SaleStatusPending, sale.Status)
	require.Len(t, sale.SaleItems, 2)

	var q1, q2 models.Product
	require.NoError(t, db.First(&q1, p1.ID).Error)
	require.NoError(t, db.First(&q2, p2.ID).Error)
	assert.Equal(t, int32(16), q1.Quantity)
	assert.Equal(t, int32(6), q2.Quantity)
}

func TestCreateSale_InsufficientStockRollsBackEverything(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	customer := seedCustomer(t, db, "Ada", "ada@example.com")
	p1 := seedProduct(t, db, "P-1", 20, 2, "1.50")
	p2 := seedProduct(t, db, "P-2", 1, 2, "10.00")

	_, err := s.CreateSale(ctx, CreateSaleInput{
		CustomerID: customer.ID,
		Items: []SaleItemInput{
			{ProductID: p1.ID, Quantity: 4, UnitPrice: "1.50"},
			{ProductID: p2.ID, Quantity: 5, UnitPrice: "10.00"},
		},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// The first item's decrement must not survive the failed sale.
	var q1 models.Product
	require.NoError(t, db.First(&q1, p1.ID).Error)
	assert.Equal(t, int32(20), q1.Quantity)

	var saleCount, itemCount int64
	require.NoError(t, db.Model(&models.Sale{}).Count(&saleCount).Error)
	require.NoError(t, db.Model(&models.SaleItem{}).Count(&itemCount).Error)
	assert.Zero(t, saleCount)
	assert.Zero(t, itemCount)
}

func TestCreateSale_ValidationFailures(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	customer := seedCustomer(t, db, "Ada", "ada@example.com")
	product := seedProduct(t, db, "P-1", 10, 2, "5.00")

	tests := []struct {
		name    string
		input   CreateSaleInput
		wantErr error
	}{
		{
			name:    "no items",
			input:   CreateSaleInput{CustomerID: customer.ID},
			wantErr: ErrNoItems,
		},
		{
			name: "zero quantity",
			input: CreateSaleInput{
				CustomerID: customer.ID,
				Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 0, UnitPrice: "5.00"}},
			},
			wantErr: ErrInvalidQuantity,
		},
		{
			name: "negative unit price",
			input: CreateSaleInput{
				CustomerID: customer.ID,
				Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: "-5.00"}},
			},
			wantErr: ErrInvalidUnitPrice,
		},
		{
			name: "malformed unit price",
			input: CreateSaleInput{
				CustomerID: customer.ID,
				Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: "five"}},
			},
			wantErr: ErrInvalidUnitPrice,
		},
		{
			name: "negative tax",
			input: CreateSaleInput{
				CustomerID: customer.ID,
				TaxAmount:  "-1.00",
				Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: "5.00"}},
			},
			wantErr: ErrInvalidTaxAmount,
		},
		{
			name: "unknown customer",
			input: CreateSaleInput{
				CustomerID: 9999,
				Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: "5.00"}},
			},
			wantErr: ErrCustomerNotFound,
		},
		{
			name: "unknown product",
			input: CreateSaleInput{
				CustomerID: customer.ID,
				Items:      []SaleItemInput{{ProductID: 9999, Quantity: 1, UnitPrice: "5.00"}},
			},
			wantErr: ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateSale(ctx, tt.input)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateSale_InactiveProductRejected(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	customer := seedCustomer(t, db, "Ada", "ada@example.com")
	product := seedProduct(t, db, "P-1", 10, 2, "5.00")
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("status", models.StatusInactive).Error)

	_, err := s.CreateSale(ctx, CreateSaleInput{
		CustomerID: customer.ID,
		Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: "5.00"}},
	})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestDeleteSale_RestoresStockAndRemovesItems(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	customer := seedCustomer(t, db, "Ada", "ada@example.com")
	product := seedProduct(t, db, "ABC-123", 10, 5, "9.99")

	sale, err := s.CreateSale(ctx, CreateSaleInput{
		CustomerID: customer.ID,
		Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 3, UnitPrice: "9.99"}},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSale(ctx, sale.ID))

	var restored models.Product
	require.NoError(t, db.First(&restored, product.ID).Error)
	assert.Equal(t, int32(10), restored.Quantity)

	_, err = s.GetSale(ctx, sale.ID)
	require.ErrorIs(t, err, ErrSaleNotFound)

	var itemCount int64
	require.NoError(t, db.Model(&models.SaleItem{}).Where("sale_id = ?", sale.ID).Count(&itemCount).Error)
	assert.Zero(t, itemCount)

	list, total, err := s.ListSales(ctx, ListSalesInput{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestDeleteSale_TwiceIsNotFound(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	customer := seedCustomer(t, db, "Ada", "ada@example.com")
	product := seedProduct(t, db, "P-1", 10, 2, "5.00")

	sale, err := s.CreateSale(ctx, CreateSaleInput{
		CustomerID: customer.ID,
		Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 2, UnitPrice: "5.00"}},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSale(ctx, sale.ID))
	require.ErrorIs(t, s.DeleteSale(ctx, sale.ID), ErrSaleNotFound)

	// A rejected second delete must not restore stock again.
	var product2 models.Product
	require.NoError(t, db.First(&product2, product.ID).Error)
	assert.Equal(t, int32(10), product2.Quantity)
}

func TestUpdateSale_MetadataOnly(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	customer := seedCustomer(t, db, "Ada", "ada@example.com")
	other := seedCustomer(t, db, "Grace", "grace@example.com")
	product := seedProduct(t, db, "P-1", 10, 2, "5.00")

	sale, err := s.CreateSale(ctx, CreateSaleInput{
		CustomerID: customer.ID,
		Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 2, UnitPrice: "5.00"}},
	})
	require.NoError(t, err)

	completed := models.SaleStatusCompleted
	notes := "paid in cash"
	updated, err := s.UpdateSale(ctx, sale.ID, UpdateSaleInput{
		CustomerID: &other.ID,
		Status:     &completed,
		Notes:      &notes,
	})
	require.NoError(t, err)

	assert.Equal(t, other.ID, updated.CustomerID)
	assert.Equal(t, models.SaleStatusCompleted, updated.Status)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "paid in cash", *updated.Notes)

	// Amounts and items are untouched.
	assert.Equal(t, sale.Subtotal, updated.Subtotal)
	assert.Equal(t, sale.TotalAmount, updated.TotalAmount)
	require.Len(t, updated.SaleItems, 1)

	_, err = s.UpdateSale(ctx, 9999, UpdateSaleInput{Status: &completed})
	require.ErrorIs(t, err, ErrSaleNotFound)
}

func TestListSales_FiltersAndPagination(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	ada := seedCustomer(t, db, "Ada Lovelace", "ada@example.com")
	grace := seedCustomer(t, db, "Grace Hopper", "grace@example.com")
	product := seedProduct(t, db, "P-1", 1000, 2, "1.00")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		customerID := ada.ID
		status := models.SaleStatusPending
		if i%2 == 0 {
			customerID = grace.ID
			status = models.SaleStatusCompleted
		}
		date := base.AddDate(0, 0, i)
		_, err := s.CreateSale(ctx, CreateSaleInput{
			CustomerID: customerID,
			Status:     status,
			SaleDate:   &date,
			Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: "1.00"}},
		})
		require.NoError(t, err)
	}

	// Page size 10: first page has 10 of 12, second page the remaining 2.
	page1, total, err := s.ListSales(ctx, ListSalesInput{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
	assert.Len(t, page1, 10)

	page2, total, err := s.ListSales(ctx, ListSalesInput{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
	assert.Len(t, page2, 2)

	// Ordered by sale_date descending across pages.
	assert.True(t, page1[0].SaleDate.After(page2[len(page2)-1].SaleDate))

	// Status filter.
	completed, total, err := s.ListSales(ctx, ListSalesInput{Status: models.SaleStatusCompleted})
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	for _, sale := range completed {
		assert.Equal(t, models.SaleStatusCompleted, sale.Status)
	}

	// Search matches the customer name.
	byName, total, err := s.ListSales(ctx, ListSalesInput{Search: "Hopper"})
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	for _, sale := range byName {
		assert.Equal(t, grace.ID, sale.CustomerID)
	}

	// Search matches the sale number.
	bySaleNumber, total, err := s.ListSales(ctx, ListSalesInput{Search: page1[0].SaleNumber})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, bySaleNumber, 1)
	assert.Equal(t, page1[0].ID, bySaleNumber[0].ID)

	// Empty filters return everything.
	all, total, err := s.ListSales(ctx, ListSalesInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
	assert.Len(t, all, 10)
}

func TestSaleNumbersAreUnique(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	customer := seedCustomer(t, db, "Ada", "ada@example.com")
	product := seedProduct(t, db, "P-1", 1000, 2, "1.00")

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		sale, err := s.CreateSale(ctx, CreateSaleInput{
			CustomerID: customer.ID,
			Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: "1.00"}},
		})
		require.NoError(t, err)
		assert.False(t, seen[sale.SaleNumber], "duplicate sale number %s", sale.SaleNumber)
		seen[sale.SaleNumber] = true
	}
}

func TestGetSale_WholeAmountsStayTwoDecimal(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	customer := seedCustomer(t, db, "Ada", "ada@example.com")
	product := seedProduct(t, db, "RND-1", 10, 2, "10.00")

	created, err := s.CreateSale(ctx, CreateSaleInput{
		CustomerID: customer.ID,
		TaxAmount:  "2.00",
		Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 3, UnitPrice: "10.00"}},
	})
	require.NoError(t, err)

	// Whole amounts can come back without the trailing zeros depending on the
	// backend's numeric representation; a fresh read must still be canonical.
	fetched, err := s.GetSale(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", fetched.Subtotal)
	assert.Equal(t, "2.00", fetched.TaxAmount)
	assert.Equal(t, "32.00", fetched.TotalAmount)
	require.Len(t, fetched.SaleItems, 1)
	assert.Equal(t, "10.00", fetched.SaleItems[0].UnitPrice)
	assert.Equal(t, "30.00", fetched.SaleItems[0].TotalPrice)

	listed, total, err := s.ListSales(ctx, ListSalesInput{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, "32.00", listed[0].TotalAmount)
	assert.Equal(t, "2.00", listed[0].TaxAmount)
}

func TestListSales_SearchIsCaseInsensitive(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	customer := seedCustomer(t, db, "Grace Hopper", "grace@example.com")
	product := seedProduct(t, db, "CI-1", 10, 2, "1.00")

	sale, err := s.CreateSale(ctx, CreateSaleInput{
		CustomerID: customer.ID,
		Items:      []SaleItemInput{{ProductID: product.ID, Quantity: 1, UnitPrice: "1.00"}},
	})
	require.NoError(t, err)

	for _, term := range []string{"hopper", "HOPPER", strings.ToLower(sale.SaleNumber)} {
		listed, total, err := s.ListSales(ctx, ListSalesInput{Search: term})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total, "search %q", term)
		require.Len(t, listed, 1, "search %q", term)
	}
}
