package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // Cache TTL

	"github.com/joho/godotenv"      // For loading .env files
	"github.com/shopspring/decimal" // Exact decimal cash amounts
)

// Config holds the application configuration
type Config struct {
	AppPort       string          // Application port
	DBUser        string          // Database user
	DBPassword    string          // Database password
	DBHost        string          // Database host
	DBPort        string          // Database port
	DBName        string          // Database name
	JWTSecret     string          // JWT secret key
	RedisAddr     string          // Redis server address
	RedisPass     string          // Redis password
	RedisDB       int             // Redis database number
	QuoteAPIURL   string          // Quote provider base URL
	QuoteAPIKey   string          // Quote provider API key
	QuoteCacheTTL time.Duration   // How long quotes stay cached
	StartingCash  decimal.Decimal // Seed cash balance for new accounts
	IsProd        bool            // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	// New accounts start with $10,000 unless configured otherwise
	startingCash, err := decimal.NewFromString(os.Getenv("STARTING_CASH"))
	if err != nil || startingCash.IsNegative() {
		startingCash = decimal.NewFromInt(10000)
	}

	// Quotes stay fresh for 60 seconds unless configured otherwise
	quoteTTL := 60 * time.Second
	if s, err := strconv.Atoi(os.Getenv("QUOTE_CACHE_TTL_SECONDS")); err == nil && s > 0 {
		quoteTTL = time.Duration(s) * time.Second
	}

	return &Config{
		AppPort:       os.Getenv("APP_PORT"),          // Application port
		DBUser:        os.Getenv("DB_USER"),           // Database user
		DBPassword:    os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:        os.Getenv("DB_HOST"),           // Database host
		DBPort:        os.Getenv("DB_PORT"),           // Database port
		DBName:        os.Getenv("DB_NAME"),           // Database name
		JWTSecret:     os.Getenv("JWT_SECRET"),        // JWT secret key
		RedisAddr:     os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:     os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:       redisDB,                        // Redis database number
		QuoteAPIURL:   os.Getenv("QUOTE_API_URL"),     // Quote provider base URL
		QuoteAPIKey:   os.Getenv("QUOTE_API_KEY"),     // Quote provider API key
		QuoteCacheTTL: quoteTTL,                       // Quote cache TTL
		StartingCash:  startingCash,                   // Seed cash balance
		IsProd:        os.Getenv("IS_PROD") == "true", // Is production environment
	}
}
