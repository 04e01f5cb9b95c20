package config

import "go.uber.org/fx"

// Module loads and validates configuration for the application.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Invoke(func(cfg Config) error {
		return cfg.Validate()
	}),
)
