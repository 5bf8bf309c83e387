package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Only this package reads environment variables.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External services
	Community CommunityConfig
	Finnhub   FinnhubConfig

	// Pipeline behavior
	Pipeline PipelineConfig

	// Filesystem
	DataDir string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// CommunityConfig holds the community lookup service configuration.
type CommunityConfig struct {
	BaseURL string
	APIKey  string
	// ContributeEnabled controls whether resolved identifiers and fetched
	// holdings are pushed back to the community service.
	ContributeEnabled bool
}

// FinnhubConfig holds the commercial market-data API configuration.
type FinnhubConfig struct {
	APIKey  string
	BaseURL string
}

// PipelineConfig holds tunables for the exposure pipeline.
type PipelineConfig struct {
	// BaseCurrency is the reporting currency; positions in any other
	// currency raise a quality issue rather than being converted.
	BaseCurrency string

	// LowWeightThreshold (percent) below which holdings skip external
	// API resolution tiers.
	LowWeightThreshold float64

	// HoldingsCacheMaxAge is the freshness window for cached fund holdings.
	HoldingsCacheMaxAge time.Duration

	// MaxConcurrentFunds bounds concurrent fund decomposition.
	MaxConcurrentFunds int
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Community: CommunityConfig{
			BaseURL:           getEnv("COMMUNITY_BASE_URL", ""),
			APIKey:            getEnv("COMMUNITY_API_KEY", ""),
			ContributeEnabled: getEnvAsBool("COMMUNITY_CONTRIBUTE_ENABLED", true),
		},

		Finnhub: FinnhubConfig{
			APIKey:  getEnv("FINNHUB_API_KEY", ""),
			BaseURL: getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		},

		Pipeline: PipelineConfig{
			BaseCurrency:        getEnv("BASE_CURRENCY", "EUR"),
			LowWeightThreshold:  getEnvAsFloat("LOW_WEIGHT_THRESHOLD", 0.5),
			HoldingsCacheMaxAge: getEnvAsDuration("HOLDINGS_CACHE_MAX_AGE", "168h"),
			MaxConcurrentFunds:  getEnvAsInt("MAX_CONCURRENT_FUNDS", 4),
		},

		DataDir: getEnv("XRAY_DATA_DIR", defaultDataDir()),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.LowWeightThreshold < 0 || c.Pipeline.LowWeightThreshold > 100 {
		return fmt.Errorf("LOW_WEIGHT_THRESHOLD must be a percentage in [0,100]")
	}

	if c.Pipeline.MaxConcurrentFunds < 1 {
		return fmt.Errorf("MAX_CONCURRENT_FUNDS must be >= 1")
	}

	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".xray")
}

// loadEnvFile tries to load .env from the working directory, then
// relative to the executable.
func loadEnvFile() {
	paths := []string{
		".env",
	}

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
