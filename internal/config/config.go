package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration (operator tokens)
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// Redis configuration (rate limiter store)
	Redis RedisConfig

	// RabbitMQ configuration (reservation events)
	RabbitMQ RabbitMQConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// Operator console credentials
	Operator OperatorConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// PaymentConfig holds PayMongo checkout configuration
type PaymentConfig struct {
	APIURL             string
	SecretKey          string // never exposed to clients
	WebhookSecret      string
	PaymentMethods     []string
	SignatureTolerance time.Duration // 0 disables the timestamp check
	Mock               bool
	AppBaseURL         string // used to build success/cancel URLs
	SessionTTL         time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig holds broker settings
type RabbitMQConfig struct {
	URL   string
	Queue string
}

// RateLimitConfig holds token bucket settings for public booking endpoints
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillInterval time.Duration
}

// OperatorConfig holds the operator login credentials
type OperatorConfig struct {
	Email        string
	PasswordHash string // bcrypt
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Payment: PaymentConfig{
			APIURL:             getEnv("PAYMONGO_API_URL", "https://api.paymongo.com/v1"),
			SecretKey:          getEnv("PAYMONGO_SECRET_KEY", ""),
			WebhookSecret:      getEnv("PAYMONGO_WEBHOOK_SECRET", ""),
			PaymentMethods:     getEnvAsSlice("PAYMONGO_PAYMENT_METHODS", []string{"card", "gcash", "paymaya", "grab_pay"}),
			SignatureTolerance: time.Duration(getEnvAsInt("PAYMONGO_SIGNATURE_TOLERANCE_SECONDS", 0)) * time.Second,
			Mock:               getEnvAsBool("PAYMENT_GATEWAY_MOCK", false),
			AppBaseURL:         strings.TrimRight(getEnv("APP_BASE_URL", ""), "/"),
			SessionTTL:         time.Duration(getEnvAsInt("CHECKOUT_SESSION_TTL_HOURS", 24)) * time.Hour,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   getEnv("RABBITMQ_URL", ""),
			Queue: getEnv("RABBITMQ_QUEUE", "reservation_events"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Capacity:       getEnvAsInt("RATE_LIMIT_CAPACITY", 10),
			RefillInterval: time.Duration(getEnvAsInt("RATE_LIMIT_REFILL_INTERVAL", 6)) * time.Second,
		},
		Operator: OperatorConfig{
			Email:        strings.ToLower(getEnv("OPERATOR_EMAIL", "")),
			PasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Payment.WebhookSecret == "" {
		return fmt.Errorf("PAYMONGO_WEBHOOK_SECRET is required")
	}

	if c.Payment.AppBaseURL == "" {
		return fmt.Errorf("APP_BASE_URL is required")
	}

	if !c.Payment.Mock && c.Payment.SecretKey == "" {
		return fmt.Errorf("PAYMONGO_SECRET_KEY is required unless PAYMENT_GATEWAY_MOCK is enabled")
	}

	if c.RateLimit.Capacity <= 0 || c.RateLimit.RefillInterval <= 0 {
		return fmt.Errorf("RATE_LIMIT_CAPACITY and RATE_LIMIT_REFILL_INTERVAL must be positive")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
