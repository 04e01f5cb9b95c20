package report

import (
	"github.com/smallbiznis/shopmirror/internal/clock"
	"github.com/smallbiznis/shopmirror/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewFromConfig(db *gorm.DB, cfg config.Config, policy config.RoyaltyPolicy, c clock.Clock, log *zap.Logger) *Generator {
	return NewGenerator(db, policy, cfg.ReportDir, c, log)
}

var Module = fx.Module("report",
	fx.Provide(
		config.LoadRoyaltyPolicy,
		NewFromConfig,
	),
)
