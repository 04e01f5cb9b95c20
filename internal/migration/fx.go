package migration

import (
	"github.com/smallbiznis/shopmirror/internal/config"
	mirrordomain "github.com/smallbiznis/shopmirror/internal/mirror/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// SQLite and MySQL installs derive the schema from the models.
		return conn.AutoMigrate(
			&mirrordomain.Collection{},
			&mirrordomain.Product{},
			&mirrordomain.Variant{},
			&mirrordomain.Customer{},
			&mirrordomain.Order{},
			&mirrordomain.LineItem{},
			&mirrordomain.SyncCheckpoint{},
			&mirrordomain.QuarantinedRow{},
		)
	}),
)
