package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"bizdesk-system/config"
	authhandler "bizdesk-system/internal/auth/handler"
	cataloghandler "bizdesk-system/internal/catalog/handler"
	customerhandler "bizdesk-system/internal/customers/handler"
	dashboardhandler "bizdesk-system/internal/dashboard/handler"
	"bizdesk-system/internal/database"
	"bizdesk-system/internal/gateway/handlers"
	"bizdesk-system/internal/gateway/middleware"
	saleshandler "bizdesk-system/internal/sales/handler"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)

	secret := []byte(cfg.Auth.JWTSecret)
	tokenTTL := time.Duration(cfg.Auth.TokenTTL) * time.Hour

	authHandler := handlers.NewAuthHTTPHandler(authhandler.NewAuthHandler(db, secret, tokenTTL))
	catalogService := cataloghandler.NewCatalogHandler(db, redisClient)
	customerService := customerhandler.NewCustomerHandler(db, redisClient)
	catalogHandler := handlers.NewCatalogHTTPHandler(catalogService)
	customerHandler := handlers.NewCustomerHTTPHandler(customerService)
	salesHandler := handlers.NewSalesHTTPHandler(
		saleshandler.NewSalesHandler(db, redisClient),
		catalogService,
		customerService,
	)
	dashboardHandler := handlers.NewDashboardHTTPHandler(dashboardhandler.NewDashboardHandler(db, redisClient))

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit())

	r.GET("/", landingHandler())
	r.GET("/health", healthCheckHandler(db, redisClient))

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(secret))
	{
		categories := protected.Group("/categories")
		{
			categories.POST("", catalogHandler.CreateCategory)
			categories.GET("", catalogHandler.ListCategories)
			categories.GET("/:id", catalogHandler.GetCategory)
			categories.PUT("/:id", catalogHandler.UpdateCategory)
			categories.PATCH("/:id", catalogHandler.UpdateCategory)
			categories.DELETE("/:id", catalogHandler.DeleteCategory)
		}

		products := protected.Group("/products")
		{
			products.POST("", catalogHandler.CreateProduct)
			products.GET("", catalogHandler.ListProducts)
			products.GET("/create", catalogHandler.NewProductForm)
			products.GET("/:id", catalogHandler.GetProduct)
			products.GET("/:id/edit", catalogHandler.EditProductForm)
			products.PUT("/:id", catalogHandler.UpdateProduct)
			products.PATCH("/:id", catalogHandler.UpdateProduct)
			products.DELETE("/:id", catalogHandler.DeleteProduct)
		}

		customers := protected.Group("/customers")
		{
			customers.POST("", customerHandler.CreateCustomer)
			customers.GET("", customerHandler.ListCustomers)
			customers.GET("/:id", customerHandler.GetCustomer)
			customers.PUT("/:id", customerHandler.UpdateCustomer)
			customers.PATCH("/:id", customerHandler.UpdateCustomer)
			customers.DELETE("/:id", customerHandler.DeleteCustomer)
		}

		sales := protected.Group("/sales")
		{
			sales.POST("", salesHandler.CreateSale)
			sales.GET("", salesHandler.ListSales)
			sales.GET("/create", salesHandler.NewSaleForm)
			sales.GET("/:id", salesHandler.GetSale)
			sales.GET("/:id/edit", salesHandler.EditSaleForm)
			sales.PUT("/:id", salesHandler.UpdateSale)
			sales.PATCH("/:id", salesHandler.UpdateSale)
			sales.DELETE("/:id", salesHandler.DeleteSale)
		}

		protected.GET("/dashboard", dashboardHandler.GetDashboard)
	}

	port := ":" + cfg.Server.Port
	log.Printf("Starting server on port %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func landingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "bizdesk",
			"message": "Business management API",
			"links": gin.H{
				"health":    "/health",
				"dashboard": "/api/v1/dashboard",
			},
		})
	}
}

func healthCheckHandler(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		httpStatus := http.StatusOK
		services := gin.H{}

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			services["database"] = "unavailable"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		} else {
			services["database"] = "healthy"
		}

		if err := redisClient.Ping(ctx).Err(); err != nil {
			services["redis"] = "unavailable"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		} else {
			services["redis"] = "healthy"
		}

		c.JSON(httpStatus, gin.H{
			"status":    status,
			"services":  services,
			"timestamp": time.Now(),
		})
	}
}
