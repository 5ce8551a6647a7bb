package handler

import (
	"context"
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

func newTestHandler(t *testing.T) (*CustomerHandler, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)

	require.NoError(t, db.AutoMigrate(
		&models.Category{},
		&models.Customer{},
		&models.Product{},
		&models.Sale{},
		&models.SaleItem{},
	))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return NewCustomerHandler(db, redisClient), db
}

func TestCreateCustomer_DuplicateEmail(t *testing.T) {
	s, _ := newTestHandler(t)
	ctx := context.Background()

	created, err := s.CreateCustomer(ctx, CreateCustomerInput{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, created.Status)

	_, err = s.CreateCustomer(ctx, CreateCustomerInput{
		Name:  "Someone Else",
		Email: "ada@example.com",
	})
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUpdateCustomer(t *testing.T) {
	s, _ := newTestHandler(t)
	ctx := context.Background()

	ada, err := s.CreateCustomer(ctx, CreateCustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	_, err = s.CreateCustomer(ctx, CreateCustomerInput{Name: "Grace", Email: "grace@example.com"})
	require.NoError(t, err)

	company := "Analytical Engines Ltd"
	updated, err := s.UpdateCustomer(ctx, ada.ID, UpdateCustomerInput{Company: &company})
	require.NoError(t, err)
	require.NotNil(t, updated.Company)
	assert.Equal(t, company, *updated.Company)
	assert.Equal(t, "ada@example.com", updated.Email)

	taken := "grace@example.com"
	_, err = s.UpdateCustomer(ctx, ada.ID, UpdateCustomerInput{Email: &taken})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = s.UpdateCustomer(ctx, 9999, UpdateCustomerInput{Company: &company})
	require.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestListCustomers_SearchAndStatus(t *testing.T) {
	s, _ := newTestHandler(t)
	ctx := context.Background()

	company := "Hopper Computing"
	_, err := s.CreateCustomer(ctx, CreateCustomerInput{Name: "Ada Lovelace", Email: "ada@example.com"})
	require.NoError(t, err)
	_, err = s.CreateCustomer(ctx, CreateCustomerInput{Name: "Grace Hopper", Email: "grace@example.com", Company: &company})
	require.NoError(t, err)
	_, err = s.CreateCustomer(ctx, CreateCustomerInput{Name: "Retired", Email: "old@example.com", Status: models.StatusInactive})
	require.NoError(t, err)

	byName, total, err := s.ListCustomers(ctx, ListCustomersInput{Search: "Lovelace"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Ada Lovelace", byName[0].Name)

	byCompany, total, err := s.ListCustomers(ctx, ListCustomersInput{Search: "Computing"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Grace Hopper", byCompany[0].Name)

	active, total, err := s.ListCustomers(ctx, ListCustomersInput{Status: models.StatusActive})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, customer := range active {
		assert.Equal(t, models.StatusActive, customer.Status)
	}

	_, total, err = s.ListCustomers(ctx, ListCustomersInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestDeleteCustomer_CascadesToSales(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	customer, err := s.CreateCustomer(ctx, CreateCustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	category := models.Category{Name: "General", Status: models.StatusActive}
	require.NoError(t, db.Create(&category).Error)
	product := models.Product{
		Name: "Widget", SKU: "W-1", Price: "1.00", Quantity: 10,
		CategoryID: category.ID, Status: models.StatusActive,
	}
	require.NoError(t, db.Create(&product).Error)

	sale := models.Sale{
		SaleNumber: "SALE-TESTCASC", CustomerID: customer.ID,
		Subtotal: "1.00", TaxAmount: "0.00", TotalAmount: "1.00",
		Status: models.SaleStatusPending, SaleDate: time.Now(),
	}
	require.NoError(t, db.Create(&sale).Error)
	item := models.SaleItem{
		SaleID: sale.ID, ProductID: product.ID,
		Quantity: 1, UnitPrice: "1.00", TotalPrice: "1.00",
	}
	require.NoError(t, db.Create(&item).Error)

	require.NoError(t, s.DeleteCustomer(ctx, customer.ID))

	var saleCount, itemCount int64
	require.NoError(t, db.Model(&models.Sale{}).Count(&saleCount).Error)
	require.NoError(t, db.Model(&models.SaleItem{}).Count(&itemCount).Error)
	assert.Zero(t, saleCount)
	assert.Zero(t, itemCount)

	require.ErrorIs(t, s.DeleteCustomer(ctx, customer.ID), ErrCustomerNotFound)
}

func TestListCustomers_DefaultPageCached(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	_, err := s.CreateCustomer(ctx, CreateCustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	listed, total, err := s.ListCustomers(ctx, ListCustomersInput{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.EqualValues(t, 1, total)

	// A write that bypasses the handler is invisible while the entry lives.
	sneaked := models.Customer{Name: "Sneaked", Email: "sneak@example.com", Status: models.StatusActive}
	require.NoError(t, db.Create(&sneaked).Error)

	listed, total, err = s.ListCustomers(ctx, ListCustomersInput{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, listed, 1, "stale cached page")
	assert.EqualValues(t, 1, total)

	// Any handler mutation drops the entry.
	_, err = s.CreateCustomer(ctx, CreateCustomerInput{Name: "Grace", Email: "grace@example.com"})
	require.NoError(t, err)

	listed, total, err = s.ListCustomers(ctx, ListCustomersInput{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, listed, 3)
	assert.EqualValues(t, 3, total)

	// Filtered listings bypass the cache.
	filtered, total, err := s.ListCustomers(ctx, ListCustomersInput{Search: "Sneaked"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.EqualValues(t, 1, total)
}

func TestListCustomers_SearchIsCaseInsensitive(t *testing.T) {
	s, _ := newTestHandler(t)
	ctx := context.Background()

	company := "Hopper Computing"
	_, err := s.CreateCustomer(ctx, CreateCustomerInput{Name: "Grace Hopper", Email: "grace@example.com", Company: &company})
	require.NoError(t, err)

	for _, term := range []string{"hopper", "HOPPER", "computing"} {
		listed, total, err := s.ListCustomers(ctx, ListCustomersInput{Search: term})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total, "search %q", term)
		require.Len(t, listed, 1, "search %q", term)
	}
}
