package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// All environment access goes through Load(); nothing else reads os.Getenv.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data source
	Eastmoney EastmoneyConfig

	// Market-level valuation assumptions (A-share defaults)
	Market MarketConfig

	// Watchlist for scheduled batch valuation
	Watchlist []string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// EastmoneyConfig holds the quote-page source configuration
type EastmoneyConfig struct {
	BaseURL        string
	RequestsPerSec int
}

// MarketConfig holds market-level rates used by the valuation engine.
// Defaults reflect the A-share market: 10y CGB yield ~2.8%, equity risk
// premium ~5.5%.
type MarketConfig struct {
	RiskFreeRate      float64
	RiskPremium       float64
	DefaultBeta       float64
	DefaultCostOfDebt float64
	DefaultTaxRate    float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8086"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Market data source
		Eastmoney: EastmoneyConfig{
			BaseURL:        getEnv("EASTMONEY_BASE_URL", "https://quote.eastmoney.com"),
			RequestsPerSec: getEnvAsInt("EASTMONEY_RPS", 5),
		},

		// Market assumptions
		Market: MarketConfig{
			RiskFreeRate:      getEnvAsFloat("MARKET_RISK_FREE_RATE", 0.028),
			RiskPremium:       getEnvAsFloat("MARKET_RISK_PREMIUM", 0.055),
			DefaultBeta:       getEnvAsFloat("MARKET_DEFAULT_BETA", 1.0),
			DefaultCostOfDebt: getEnvAsFloat("MARKET_DEFAULT_COST_OF_DEBT", 0.045),
			DefaultTaxRate:    getEnvAsFloat("MARKET_DEFAULT_TAX_RATE", 0.25),
		},

		Watchlist: getEnvAsList("WATCHLIST", nil),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are sane
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Market.RiskFreeRate < 0 || c.Market.RiskFreeRate > 0.20 {
		return fmt.Errorf("MARKET_RISK_FREE_RATE out of range: %v", c.Market.RiskFreeRate)
	}

	if c.Market.RiskPremium <= 0 || c.Market.RiskPremium > 0.20 {
		return fmt.Errorf("MARKET_RISK_PREMIUM out of range: %v", c.Market.RiskPremium)
	}

	if c.Market.DefaultTaxRate < 0 || c.Market.DefaultTaxRate >= 1 {
		return fmt.Errorf("MARKET_DEFAULT_TAX_RATE out of range: %v", c.Market.DefaultTaxRate)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
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
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
