package events

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/clock"
	"github.com/smallbiznis/partnerpay/internal/config"
	"github.com/smallbiznis/partnerpay/internal/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newWorker(gdb *gorm.DB, log *zap.Logger, clk clock.Clock, m *metrics.Metrics, cfg config.Config) *Worker {
	return NewWorker(gdb, log, clk, m, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
}

func newOutbox(gdb *gorm.DB, genID *snowflake.Node) *Outbox {
	return NewOutbox(gdb, genID)
}

func runWorker(lc fx.Lifecycle, worker *Worker) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				worker.RunForever(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}

var Module = fx.Module("events",
	fx.Provide(
		newOutbox,
		newWorker,
	),
	fx.Invoke(runWorker),
)
