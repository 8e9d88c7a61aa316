package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"stocksim/internal/api"        // Custom package for API handlers
	"stocksim/internal/config"     // Custom package for configuration
	"stocksim/internal/ledger"     // Account ledger core
	"stocksim/internal/middleware" // Custom package for middleware
	"stocksim/internal/quote"      // Quote provider client

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// The quote provider is useless without a key
	if cfg.QuoteAPIKey == "" {
		logrus.Fatal("QUOTE_API_KEY not set")
	}

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Quote lookups go through the Redis cache to spare the upstream
	quotes := quote.NewCachedProvider(
		quote.NewAPIClient(cfg.QuoteAPIURL, cfg.QuoteAPIKey),
		redisClient,
		cfg.QuoteCacheTTL,
	)
	ledg := ledger.New(db, quotes, cfg.StartingCash)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/register", api.RegisterHandler(ledg, cfg.JWTSecret)) // Registration endpoint
	r.POST("/login", api.LoginHandler(ledg, cfg.JWTSecret))       // Login endpoint

	// Trading routes (protected by JWT)
	authed := r.Group("/")
	authed.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret, redisClient))
	authed.GET("", api.IndexHandler(ledg))                        // Portfolio valuation endpoint
	authed.POST("/logout", api.LogoutHandler(redisClient))        // Logout endpoint
	authed.GET("/quote", api.QuoteHandler(ledg))                  // Quote lookup endpoint
	authed.POST("/buy", api.BuyHandler(ledg, redisClient))        // Buy endpoint
	authed.POST("/sell", api.SellHandler(ledg, redisClient))      // Sell endpoint
	authed.GET("/history", api.HistoryHandler(ledg, redisClient)) // Trade history endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
