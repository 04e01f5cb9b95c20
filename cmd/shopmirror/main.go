package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopmirror/internal/archive"
	"github.com/smallbiznis/shopmirror/internal/clock"
	"github.com/smallbiznis/shopmirror/internal/config"
	"github.com/smallbiznis/shopmirror/internal/logger"
	"github.com/smallbiznis/shopmirror/internal/migration"
	"github.com/smallbiznis/shopmirror/internal/mirror"
	"github.com/smallbiznis/shopmirror/internal/pipeline"
	"github.com/smallbiznis/shopmirror/internal/ratelimit"
	"github.com/smallbiznis/shopmirror/internal/shopify"
	"github.com/smallbiznis/shopmirror/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		// Sync pipeline
		ratelimit.Module,
		shopify.Module,
		mirror.Module,
		archive.Module,
		pipeline.Module,

		fx.Invoke(RunSync),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// RunSync runs one full sync once the app is up, prints the run summary and
// shuts the app down with a non-zero exit code unless the run finished clean.
func RunSync(lc fx.Lifecycle, coord *pipeline.Coordinator, log *zap.Logger, sd fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				summary := coord.Run(ctx)
				printSummary(summary)

				code := 0
				if summary.State != pipeline.RunDone {
					code = 1
				}
				if err := sd.Shutdown(fx.ExitCode(code)); err != nil {
					log.Error("shutdown failed", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

func printSummary(s pipeline.Summary) {
	out := struct {
		State           pipeline.RunState                 `json:"state"`
		DurationSeconds float64                           `json:"duration_seconds"`
		Counts          map[string]*pipeline.EntityCounts `json:"counts"`
		Checkpoints     map[string]string                 `json:"checkpoints"`
		QuarantinedIDs  []int64                           `json:"quarantined_ids,omitempty"`
		PassErrors      []string                          `json:"pass_errors,omitempty"`
	}{
		State:           s.State,
		DurationSeconds: s.Duration.Seconds(),
		Counts:          s.Counts,
		Checkpoints:     s.Checkpoints,
		QuarantinedIDs:  s.QuarantinedIDs,
	}
	for _, pe := range s.PassErrors {
		out.PassErrors = append(out.PassErrors, fmt.Sprintf("%s: %v", pe.Pass, pe.Err))
	}

	buf, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "summary: %v\n", err)
		return
	}
	fmt.Println(string(buf))
}
