package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bizdesk-system/internal/database/models"
)

const (
	DASHBOARD_CACHE_KEY = "dashboard:stats"
	DASHBOARD_CACHE_TTL = time.Minute
)

type DashboardStats struct {
	TotalCustomers   int64  `json:"total_customers"`
	TotalProducts    int64  `json:"total_products"`
	LowStockProducts int64  `json:"low_stock_products"`
	MonthlyRevenue   string `json:"monthly_revenue"`
	TodaysSales      int64  `json:"todays_sales"`
}

type Dashboard struct {
	Stats       DashboardStats `json:"stats"`
	RecentSales []models.Sale  `json:"recent_sales"`
}

type DashboardHandler struct {
	db    *gorm.DB
	redis *redis.Client
	now   func() time.Time
}

func NewDashboardHandler(db *gorm.DB, redisClient *redis.Client) *DashboardHandler {
	return &DashboardHandler{
		db:    db,
		redis: redisClient,
		now:   time.Now,
	}
}

// GetDashboard aggregates the landing numbers. The result is cached for a
// minute and dropped by every mutating path, so stale reads are bounded.
func (s *DashboardHandler) GetDashboard(ctx context.Context) (*Dashboard, error) {
	if cached, err := s.redis.Get(ctx, DASHBOARD_CACHE_KEY).Result(); err == nil {
		var dashboard Dashboard
		if err := json.Unmarshal([]byte(cached), &dashboard); err == nil {
			return &dashboard, nil
		}
	}

	dashboard, err := s.buildDashboard(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(dashboard); err == nil {
		_ = s.redis.Set(ctx, DASHBOARD_CACHE_KEY, payload, DASHBOARD_CACHE_TTL)
	}

	return dashboard, nil
}

func (s *DashboardHandler) buildDashboard(ctx context.Context) (*Dashboard, error) {
	var dashboard Dashboard

	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Customer{}).
		Where("status = ?", models.StatusActive).
		Count(&dashboard.Stats.TotalCustomers).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Product{}).
		Where("status = ?", models.StatusActive).
		Count(&dashboard.Stats.TotalProducts).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Product{}).
		Where("status = ?", models.StatusActive).
		Where("quantity <= min_stock_level").
		Count(&dashboard.Stats.LowStockProducts).Error; err != nil {
		return nil, err
	}

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	nextMonth := monthStart.AddDate(0, 1, 0)

	var completed []models.Sale
	if err := db.
		Where("status = ?", models.SaleStatusCompleted).
		Where("sale_date >= ? AND sale_date < ?", monthStart, nextMonth).
		Find(&completed).Error; err != nil {
		return nil, err
	}

	revenue := decimal.Zero
	for _, sale := range completed {
		amount, err := decimal.NewFromString(sale.TotalAmount)
		if err != nil {
			continue
		}
		revenue = revenue.Add(amount)
	}
	dashboard.Stats.MonthlyRevenue = revenue.StringFixed(2)

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Model(&models.Sale{}).
		Where("sale_date >= ? AND sale_date < ?", dayStart, dayStart.AddDate(0, 0, 1)).
		Count(&dashboard.Stats.TodaysSales).Error; err != nil {
		return nil, err
	}

	if err := db.Preload("Customer").
		Order("sale_date DESC, id DESC").
		Limit(5).
		Find(&dashboard.RecentSales).Error; err != nil {
		return nil, err
	}

	return &dashboard, nil
}
