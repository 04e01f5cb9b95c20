package pipeline

import (
	"github.com/smallbiznis/shopmirror/internal/clock"
	"github.com/smallbiznis/shopmirror/internal/config"
	mirrordomain "github.com/smallbiznis/shopmirror/internal/mirror/domain"
	"github.com/smallbiznis/shopmirror/internal/observability/metrics"
	"github.com/smallbiznis/shopmirror/internal/shopify"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Fetcher   *shopify.Fetcher
	Repo      mirrordomain.Repository
	Clock     clock.Clock
	Log       *zap.Logger
	Cfg       config.Config
	Observers []PageObserver `group:"page_observers"`
}

func NewFromConfig(p Params) *Coordinator {
	m := metrics.SyncWithConfig(metrics.Config{
		ServiceName: p.Cfg.AppName,
		Environment: "production",
	})
	return NewCoordinator(p.Fetcher, p.Repo, p.Clock, p.Log, m, p.Observers, Config{
		BatchSize:       p.Cfg.BatchSize,
		RunDeadline:     p.Cfg.RunDeadline,
		InitialSyncDays: p.Cfg.InitialSyncDays,
	})
}

var Module = fx.Module("pipeline",
	fx.Provide(NewFromConfig),
)
