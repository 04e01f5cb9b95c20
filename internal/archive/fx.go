package archive

import (
	"github.com/smallbiznis/shopmirror/internal/clock"
	"github.com/smallbiznis/shopmirror/internal/config"
	"github.com/smallbiznis/shopmirror/internal/pipeline"
	"github.com/smallbiznis/shopmirror/internal/shopify"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewFromConfig(cfg config.Config, fetcher *shopify.Fetcher, c clock.Clock, log *zap.Logger) (*Writer, error) {
	return NewWriter(cfg.ArchiveDir, fetcher, c, log, cfg.ConcurrencyK)
}

var Module = fx.Module("archive",
	fx.Provide(
		fx.Annotate(
			NewFromConfig,
			fx.As(new(pipeline.PageObserver)),
			fx.ResultTags(`group:"page_observers"`),
		),
	),
)
