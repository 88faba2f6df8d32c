package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/lunarveil/backend/docs"
	"github.com/lunarveil/backend/internal/config"
	"github.com/lunarveil/backend/internal/database"
	"github.com/lunarveil/backend/internal/handlers"
	mW "github.com/lunarveil/backend/internal/middleware"
	"github.com/lunarveil/backend/internal/services"
)

// @title Lunar Veil Café API
// @version 1.0
// @description Wallet-paid café ordering backend
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize services
	db := database.MustConnect()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	pricing := config.LoadPricingConfig()

	catalogService := services.NewCatalogService(db, redisClient, time.Duration(pricing.MenuCacheSeconds)*time.Second)
	priceValidator := services.NewPriceValidator(catalogService, pricing)
	walletService := services.NewWalletService(db)
	orderService := services.NewOrderService(db, walletService, priceValidator)
	pickupService := services.NewPickupService(db, redisClient)
	authService := services.NewAuthService(db)

	orderHandler := handlers.NewOrderHandler(orderService, pickupService)
	walletHandler := handlers.NewWalletHandler(walletService)
	menuHandler := handlers.NewMenuHandler(catalogService)
	adminHandler := handlers.NewAdminHandler(orderService, pickupService, catalogService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Static file server for product images
	r.Handle("/static/products/*", http.StripPrefix("/static/products/",
		mW.StaticFileServer("./static/products")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Get("/menu", menuHandler.GetMenu)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Post("/orders", orderHandler.PlaceOrder)
			r.Get("/orders", orderHandler.ListOrders)
			r.Get("/orders/{orderId}", orderHandler.GetOrder)
			r.Post("/orders/{orderId}/cancel", orderHandler.CancelOrder)
			r.Get("/orders/{orderId}/pickup-qr", orderHandler.PickupQR)

			r.Get("/wallet/balance", walletHandler.GetBalance)
			r.Post("/wallet/deposit", walletHandler.Deposit)
			r.Post("/wallet/withdraw", walletHandler.Withdraw)
			r.Get("/wallet/history", walletHandler.GetLedgerHistory)

			// Operator endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireStaff)

				r.Get("/admin/orders", adminHandler.ListAllOrders)
				r.Get("/admin/orders/{orderId}", adminHandler.GetOrderDetails)
				r.Put("/admin/orders/{orderId}/status", adminHandler.UpdateOrderStatus)
				r.Put("/admin/products/{productId}", adminHandler.UpdateProduct)
				r.Post("/admin/pickup/verify", adminHandler.VerifyPickup)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
