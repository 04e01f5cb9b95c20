package ratelimit

import (
	"github.com/smallbiznis/shopmirror/internal/clock"
	"github.com/smallbiznis/shopmirror/internal/config"
	"go.uber.org/fx"
)

func Provide(c clock.Clock, cfg config.Config) (*TokenBucket, error) {
	return NewTokenBucket(c, cfg.RateRPS, cfg.RateBurst)
}

var Module = fx.Module("rate.limit",
	fx.Provide(Provide),
)
