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
	Server       ServerConfig
	Database     DatabaseConfig
	CORS         CORSConfig
	Midtrans     MidtransConfig
	Identity     IdentityConfig
	Notification NotificationConfig
	Booking      BookingConfig
	Sweep        SweepConfig
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

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// MidtransConfig holds Midtrans payment gateway configuration
type MidtransConfig struct {
	Environment string // "sandbox" or "production"
	ServerKey   string // SECRET - never expose to client
	ClientKey   string
}

// IdentityConfig holds the external identity service configuration
type IdentityConfig struct {
	BaseURL string
	APIKey  string
}

// NotificationConfig holds the notification sink configuration
type NotificationConfig struct {
	WebhookURL string // empty means log-only sink
}

// BookingConfig holds booking policy configuration
type BookingConfig struct {
	PaymentExpiry    time.Duration // unpaid gateway bookings expire after this
	SearchWindowDays int           // nearest-available-date search window
	MaxPassengers    int
	MaxVehicles      int
}

// SweepConfig holds reconciliation sweep configuration
type SweepConfig struct {
	Spec      string // cron spec with seconds
	BatchSize int
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
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Midtrans: MidtransConfig{
			Environment: getEnv("MIDTRANS_ENVIRONMENT", "sandbox"),
			ServerKey:   getEnv("MIDTRANS_SERVER_KEY", ""),
			ClientKey:   getEnv("MIDTRANS_CLIENT_KEY", ""),
		},
		Identity: IdentityConfig{
			BaseURL: getEnv("IDENTITY_SERVICE_URL", ""),
			APIKey:  getEnv("IDENTITY_SERVICE_API_KEY", ""),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFICATION_WEBHOOK_URL", ""),
		},
		Booking: BookingConfig{
			PaymentExpiry:    time.Duration(getEnvAsInt("BOOKING_PAYMENT_EXPIRY_HOURS", 24)) * time.Hour,
			SearchWindowDays: getEnvAsInt("BOOKING_SEARCH_WINDOW_DAYS", 7),
			MaxPassengers:    getEnvAsInt("BOOKING_MAX_PASSENGERS", 20),
			MaxVehicles:      getEnvAsInt("BOOKING_MAX_VEHICLES", 5),
		},
		Sweep: SweepConfig{
			Spec:      getEnv("SWEEP_CRON_SPEC", "0 */5 * * * *"), // every 5 minutes
			BatchSize: getEnvAsInt("SWEEP_BATCH_SIZE", 200),
		},
	}

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

	if c.Server.Environment == "production" {
		if c.Midtrans.ServerKey == "" {
			return fmt.Errorf("MIDTRANS_SERVER_KEY is required in production")
		}
		if c.Midtrans.ClientKey == "" {
			return fmt.Errorf("MIDTRANS_CLIENT_KEY is required in production")
		}
	}

	if c.Booking.SearchWindowDays <= 0 {
		return fmt.Errorf("BOOKING_SEARCH_WINDOW_DAYS must be positive")
	}

	return nil
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

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
