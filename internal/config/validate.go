package config

import "fmt"

// ConfigError reports an invalid configuration value discovered at startup.
// A run never begins while one of these is outstanding.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Validate checks the loaded configuration before any component starts.
func (c Config) Validate() error {
	if c.StoreHost == "" {
		return &ConfigError{Field: "SHOPIFY_STORE_HOST", Reason: "is required"}
	}
	if c.AccessToken == "" {
		return &ConfigError{Field: "SHOPIFY_ACCESS_TOKEN", Reason: "is required"}
	}
	if c.RateRPS <= 0 {
		return &ConfigError{Field: "SHOPIFY_RATE_RPS", Reason: "must be positive"}
	}
	if c.RateBurst <= 0 {
		return &ConfigError{Field: "SHOPIFY_RATE_BURST", Reason: "must be positive"}
	}
	if c.MaxAttempts < 1 {
		return &ConfigError{Field: "SHOPIFY_MAX_ATTEMPTS", Reason: "must be at least 1"}
	}
	if c.BackoffBase <= 0 || c.BackoffMax < c.BackoffBase {
		return &ConfigError{Field: "SHOPIFY_BACKOFF_BASE_MS", Reason: "base must be positive and not exceed max"}
	}
	if c.PageSize < 1 || c.PageSize > 250 {
		return &ConfigError{Field: "SHOPIFY_PAGE_SIZE", Reason: "must be between 1 and 250"}
	}
	if c.ConcurrencyK < 1 || c.ConcurrencyK > 5 {
		return &ConfigError{Field: "SYNC_CONCURRENCY", Reason: "must be between 1 and 5"}
	}
	if c.BatchSize < 1 {
		return &ConfigError{Field: "SYNC_BATCH_SIZE", Reason: "must be positive"}
	}
	if c.InitialSyncDays < 0 {
		return &ConfigError{Field: "INITIAL_SYNC_DAYS", Reason: "must not be negative"}
	}
	switch c.DBType {
	case "postgres", "mysql", "sqlite":
	default:
		return &ConfigError{Field: "DATABASE_TYPE", Reason: fmt.Sprintf("unsupported type %q", c.DBType)}
	}
	return nil
}
