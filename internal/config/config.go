package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// RunSchedule is a cron expression with seconds; empty disables scheduled runs.
	RunSchedule    string
	AllowedOrigins []string
}

type ScraperConfig struct {
	Driver             string
	MaxInFlight        int
	SessionMode        string
	NavigationTimeout  time.Duration
	NavigationAttempts int
	ElementTimeout     time.Duration
	ConsentProbe       time.Duration
	SettleTimeout      time.Duration
	BrandDelayMin      time.Duration
	BrandDelayMax      time.Duration
	DefaultConsent     bool
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
}

type StorageConfig struct {
	Backend     string
	DatasetPath string
	PriceLocale string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type RedisConfig struct {
	// Addr empty disables the Redis report sink.
	Addr      string
	Password  string
	DB        int
	Stream    string
	StreamMax int64
}

type CatalogConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment. Variables from the
// given .env files (or ./.env when none are given) are applied first;
// missing files are ignored and real environment variables win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RunSchedule:     getEnvOrDefault("SERVER_RUN_SCHEDULE", "0 0 6 * * *"),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		Scraper: ScraperConfig{
			Driver:             getEnvOrDefault("SCRAPER_DRIVER", "playwright"),
			MaxInFlight:        getIntOrDefault("SCRAPER_MAX_IN_FLIGHT", 4),
			SessionMode:        getEnvOrDefault("SCRAPER_SESSION_MODE", "brand"),
			NavigationTimeout:  getDurationOrDefault("SCRAPER_NAVIGATION_TIMEOUT", 30*time.Second),
			NavigationAttempts: getIntOrDefault("SCRAPER_NAVIGATION_ATTEMPTS", 1),
			ElementTimeout:     getDurationOrDefault("SCRAPER_ELEMENT_TIMEOUT", 10*time.Second),
			ConsentProbe:       getDurationOrDefault("SCRAPER_CONSENT_PROBE", 5*time.Second),
			SettleTimeout:      getDurationOrDefault("SCRAPER_SETTLE_TIMEOUT", 5*time.Second),
			BrandDelayMin:      getDurationOrDefault("SCRAPER_BRAND_DELAY_MIN", 0),
			BrandDelayMax:      getDurationOrDefault("SCRAPER_BRAND_DELAY_MAX", 0),
			DefaultConsent:     getBoolOrDefault("SCRAPER_DEFAULT_CONSENT", false),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", ""),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "de-DE,de;q=0.9,en;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Berlin"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "de-DE"),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Storage: StorageConfig{
			Backend:     getEnvOrDefault("STORAGE_BACKEND", "csv"),
			DatasetPath: getEnvOrDefault("STORAGE_DATASET_PATH", "prices.csv"),
			PriceLocale: getEnvOrDefault("STORAGE_PRICE_LOCALE", "de"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "price_tracker"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: getIntOrDefault("DB_MAX_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:      getEnvOrDefault("REDIS_ADDR", ""),
			Password:  getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:        getIntOrDefault("REDIS_DB", 0),
			Stream:    getEnvOrDefault("REDIS_STREAM", "stream:price_failures"),
			StreamMax: int64(getIntOrDefault("REDIS_STREAM_MAXLEN", 10000)),
		},
		Catalog: CatalogConfig{
			Path: getEnvOrDefault("CATALOG_PATH", "catalog.yaml"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Scraper.Driver {
	case "playwright", "static":
	default:
		return fmt.Errorf("SCRAPER_DRIVER must be playwright or static, got %q", c.Scraper.Driver)
	}

	if c.Scraper.MaxInFlight < 0 {
		return fmt.Errorf("SCRAPER_MAX_IN_FLIGHT cannot be negative")
	}

	switch c.Scraper.SessionMode {
	case "brand", "shared":
	default:
		return fmt.Errorf("SCRAPER_SESSION_MODE must be brand or shared, got %q", c.Scraper.SessionMode)
	}

	if c.Scraper.NavigationAttempts < 1 {
		return fmt.Errorf("SCRAPER_NAVIGATION_ATTEMPTS must be at least 1")
	}

	if c.Scraper.NavigationTimeout <= 0 || c.Scraper.ElementTimeout <= 0 {
		return fmt.Errorf("SCRAPER_NAVIGATION_TIMEOUT and SCRAPER_ELEMENT_TIMEOUT must be positive")
	}

	if c.Scraper.ConsentProbe < 0 || c.Scraper.SettleTimeout < 0 {
		return fmt.Errorf("SCRAPER_CONSENT_PROBE and SCRAPER_SETTLE_TIMEOUT cannot be negative")
	}

	if c.Scraper.BrandDelayMin > c.Scraper.BrandDelayMax {
		return fmt.Errorf("SCRAPER_BRAND_DELAY_MIN cannot be greater than SCRAPER_BRAND_DELAY_MAX")
	}

	switch c.Storage.Backend {
	case "csv":
		if c.Storage.DatasetPath == "" {
			return fmt.Errorf("STORAGE_DATASET_PATH is required for the csv backend")
		}
	case "postgres":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be csv or postgres, got %q", c.Storage.Backend)
	}

	switch c.Storage.PriceLocale {
	case "de", "en":
	default:
		return fmt.Errorf("STORAGE_PRICE_LOCALE must be de or en, got %q", c.Storage.PriceLocale)
	}

	if c.Catalog.Path == "" {
		return fmt.Errorf("CATALOG_PATH is required")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
