// Command reports renders the royalty and sales reports for a month, or for
// every month of a year, out of the mirrored store.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/smallbiznis/shopmirror/internal/clock"
	"github.com/smallbiznis/shopmirror/internal/config"
	"github.com/smallbiznis/shopmirror/internal/logger"
	"github.com/smallbiznis/shopmirror/internal/report"
	"github.com/smallbiznis/shopmirror/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	flagYear  = flag.Int("year", time.Now().UTC().Year(), "report year")
	flagMonth = flag.Int("month", 0, "report month 1-12, 0 for every month of the year")
)

func main() {
	flag.Parse()

	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		db.Module,
		report.Module,

		fx.Invoke(RunReports),
	)
	app.Run()
}

func RunReports(lc fx.Lifecycle, gen *report.Generator, log *zap.Logger, sd fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := 0
				if err := writeReports(context.Background(), gen, *flagYear, *flagMonth, log); err != nil {
					log.Error("report generation failed", zap.Error(err))
					code = 1
				}
				_ = sd.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
	})
}

func writeReports(ctx context.Context, gen *report.Generator, year, month int, log *zap.Logger) error {
	months := []int{month}
	if month == 0 {
		months = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	}

	for _, m := range months {
		if month == 0 {
			sales, err := gen.SalesReport(ctx, year, m)
			if err != nil {
				return err
			}
			if len(sales.Lines) == 0 {
				continue
			}
		}
		if _, _, err := gen.WriteRoyaltyReport(ctx, year, m); err != nil {
			return err
		}
		if _, _, err := gen.WriteSalesReport(ctx, year, m); err != nil {
			return err
		}
		log.Info("month reported", zap.Int("year", year), zap.Int("month", m))
	}
	return nil
}
