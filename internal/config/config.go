// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DBConfig holds database configuration.
type DBConfig struct {
	URL      string
	MaxConns int32
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins string
	MaxBodyBytes   int64
}

// AuthConfig holds the single admin credential and the JWT signing secret.
// Auth is disabled when AdminPasswordHash is empty.
type AuthConfig struct {
	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string
	SessionTTL        time.Duration
}

// StockConfig drives the scheduled low-stock watcher.
type StockConfig struct {
	LowStockThreshold int
	LowStockSchedule  string
}

// Config holds all configuration.
type Config struct {
	ServiceName string
	DB          DBConfig
	Server      ServerConfig
	Auth        AuthConfig
	Stock       StockConfig
	LogLevel    string
	// Location is the business time zone; invoice numbers use its calendar day.
	Location *time.Location
}

// AuthEnabled reports whether admin authentication is enforced.
func (c *Config) AuthEnabled() bool {
	return c.Auth.AdminPasswordHash != ""
}

// Load reads .env (if present) and the process environment.
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	tzName := getEnv("BUSINESS_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", tzName, err)
	}

	cfg := &Config{
		ServiceName: serviceName,
		DB: DBConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 0)),
		},
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("APP_ENV", "development"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
			MaxBodyBytes:   int64(getEnvAsInt("MAX_BODY_BYTES", 1<<20)),
		},
		Auth: AuthConfig{
			JWTSecret:         os.Getenv("JWT_SECRET"),
			AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
			AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			SessionTTL:        getEnvAsDuration("SESSION_TTL", 8*time.Hour),
		},
		Stock: StockConfig{
			LowStockThreshold: getEnvAsInt("LOW_STOCK_THRESHOLD", 5),
			LowStockSchedule:  getEnv("LOW_STOCK_SCHEDULE", "0 0 8 * * *"),
		},
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Location: loc,
	}

	if cfg.AuthEnabled() && cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set when ADMIN_PASSWORD_HASH is configured")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
