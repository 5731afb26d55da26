package scheduler

import (
	"context"

	"github.com/smallbiznis/partnerpay/internal/config"
	"go.uber.org/fx"
)

func newConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.SchedulerRunInterval,
		BatchSize:   cfg.SchedulerBatchSize,
		RetryDelay:  cfg.SettlementRetryDelay,
	}.withDefaults()
}

func runRunner(lc fx.Lifecycle, runner *Runner) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				runner.RunForever(runCtx)
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

var Module = fx.Module("scheduler",
	fx.Provide(
		newConfig,
		NewStore,
		New,
	),
	fx.Invoke(runRunner),
)
