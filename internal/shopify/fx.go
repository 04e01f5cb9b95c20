package shopify

import (
	"github.com/smallbiznis/shopmirror/internal/clock"
	"github.com/smallbiznis/shopmirror/internal/config"
	"github.com/smallbiznis/shopmirror/internal/observability/metrics"
	"github.com/smallbiznis/shopmirror/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewTransportFromConfig(cfg config.Config) Transport {
	return NewTransport(cfg.HTTPTimeout)
}

func NewFetcherFromConfig(t Transport, limiter *ratelimit.TokenBucket, c clock.Clock, log *zap.Logger, cfg config.Config) *Fetcher {
	m := metrics.SyncWithConfig(metrics.Config{
		ServiceName: cfg.AppName,
		Environment: "production",
	})
	return NewFetcher(t, limiter, c, log, m, Options{
		Host:        cfg.StoreHost,
		AccessToken: cfg.AccessToken,
		APIVersion:  cfg.APIVersion,
		PageSize:    cfg.PageSize,
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		BackoffMax:  cfg.BackoffMax,
	})
}

var Module = fx.Module("shopify",
	fx.Provide(
		NewTransportFromConfig,
		NewFetcherFromConfig,
	),
)
