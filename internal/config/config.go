package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName    string
	AppVersion string
	LogLevel   string

	// Upstream Shopify store.
	StoreHost   string
	AccessToken string
	APIVersion  string

	// Fetch tuning.
	RateRPS      float64
	RateBurst    int
	MaxAttempts  int
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	HTTPTimeout  time.Duration
	PageSize     int
	ConcurrencyK int

	// Pipeline tuning.
	BatchSize       int
	RunDeadline     time.Duration
	InitialSyncDays int

	// Artifact locations.
	ArchiveDir string
	ReportDir  string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:    getenv("APP_SERVICE", "shopmirror"),
		AppVersion: getenv("APP_VERSION", "0.1.0"),
		LogLevel:   getenv("LOG_LEVEL", "info"),

		StoreHost:   strings.TrimSpace(getenv("SHOPIFY_STORE_HOST", "")),
		AccessToken: strings.TrimSpace(getenv("SHOPIFY_ACCESS_TOKEN", "")),
		APIVersion:  getenv("SHOPIFY_API_VERSION", "2024-01"),

		RateRPS:      getenvFloat("SHOPIFY_RATE_RPS", 2),
		RateBurst:    getenvInt("SHOPIFY_RATE_BURST", 2),
		MaxAttempts:  getenvInt("SHOPIFY_MAX_ATTEMPTS", 3),
		BackoffBase:  getenvMillis("SHOPIFY_BACKOFF_BASE_MS", time.Second),
		BackoffMax:   getenvMillis("SHOPIFY_BACKOFF_MAX_MS", 30*time.Second),
		HTTPTimeout:  getenvMillis("SHOPIFY_HTTP_TIMEOUT_MS", 30*time.Second),
		PageSize:     getenvInt("SHOPIFY_PAGE_SIZE", 250),
		ConcurrencyK: getenvInt("SYNC_CONCURRENCY", 1),

		BatchSize:       getenvInt("SYNC_BATCH_SIZE", 250),
		RunDeadline:     getenvMillis("SYNC_RUN_DEADLINE_MS", 0),
		InitialSyncDays: getenvInt("INITIAL_SYNC_DAYS", 0),

		ArchiveDir: getenv("ARCHIVE_DIR", "./shopify_organized_backup"),
		ReportDir:  getenv("REPORT_DIR", "./reports"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5433"),
		DBName:            getenv("DATABASE_NAME", "shopifydata"),
		DBUser:            getenv("DATABASE_USER", "shopifyuser"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "prefer"),
		DBPath:            getenv("DATABASE_PATH", "shopmirror.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 0),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvMillis(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return time.Duration(parsed) * time.Millisecond
}
