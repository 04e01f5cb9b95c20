package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		StoreHost:    "test-shop.myshopify.com",
		AccessToken:  "shpat_test",
		RateRPS:      2,
		RateBurst:    2,
		MaxAttempts:  3,
		BackoffBase:  time.Second,
		BackoffMax:   30 * time.Second,
		PageSize:     250,
		ConcurrencyK: 1,
		BatchSize:    250,
		DBType:       "sqlite",
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing host", func(c *Config) { c.StoreHost = "" }, "SHOPIFY_STORE_HOST"},
		{"missing token", func(c *Config) { c.AccessToken = "" }, "SHOPIFY_ACCESS_TOKEN"},
		{"zero rate", func(c *Config) { c.RateRPS = 0 }, "SHOPIFY_RATE_RPS"},
		{"zero burst", func(c *Config) { c.RateBurst = 0 }, "SHOPIFY_RATE_BURST"},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, "SHOPIFY_MAX_ATTEMPTS"},
		{"backoff max below base", func(c *Config) { c.BackoffMax = c.BackoffBase / 2 }, "SHOPIFY_BACKOFF_BASE_MS"},
		{"page size over cap", func(c *Config) { c.PageSize = 251 }, "SHOPIFY_PAGE_SIZE"},
		{"concurrency over cap", func(c *Config) { c.ConcurrencyK = 6 }, "SYNC_CONCURRENCY"},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, "SYNC_BATCH_SIZE"},
		{"negative window", func(c *Config) { c.InitialSyncDays = -1 }, "INITIAL_SYNC_DAYS"},
		{"unknown db", func(c *Config) { c.DBType = "oracle" }, "DATABASE_TYPE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			cerr, ok := err.(*ConfigError)
			require.True(t, ok)
			assert.Equal(t, tc.field, cerr.Field)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "shopmirror", cfg.AppName)
	assert.Equal(t, float64(2), cfg.RateRPS)
	assert.Equal(t, 250, cfg.PageSize)
	assert.Equal(t, 30*time.Second, cfg.BackoffMax)
	assert.Equal(t, "./shopify_organized_backup", cfg.ArchiveDir)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SHOPIFY_RATE_RPS", "4.5")
	t.Setenv("SHOPIFY_PAGE_SIZE", "100")
	t.Setenv("SHOPIFY_BACKOFF_BASE_MS", "250")
	t.Setenv("SHOPIFY_STORE_HOST", "  spaced.myshopify.com  ")

	cfg := Load()
	assert.Equal(t, 4.5, cfg.RateRPS)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 250*time.Millisecond, cfg.BackoffBase)
	assert.Equal(t, "spaced.myshopify.com", cfg.StoreHost)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("SHOPIFY_PAGE_SIZE", "many")
	cfg := Load()
	assert.Equal(t, 250, cfg.PageSize)
}

func TestDefaultRoyaltyPolicy(t *testing.T) {
	p := DefaultRoyaltyPolicy()
	assert.Equal(t, float64(20), p.DefaultPercent)
	assert.Equal(t, float64(30), p.DeductionPercent)
	assert.Equal(t, float64(25), p.VATPercent)
	assert.NoError(t, validateRoyaltyPolicy(p))
}

func TestRoyaltyPolicyValidation(t *testing.T) {
	p := DefaultRoyaltyPolicy()
	p.DeductionPercent = 130
	assert.Error(t, validateRoyaltyPolicy(p))

	p = DefaultRoyaltyPolicy()
	p.VATPercent = -1
	assert.Error(t, validateRoyaltyPolicy(p))
}
