package metrics

import (
	"github.com/smallbiznis/partnerpay/internal/config"
	"go.uber.org/fx"
)

func NewFromConfig(cfg config.Config) *Metrics {
	return WithConfig(Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	})
}

var Module = fx.Module("metrics",
	fx.Provide(NewFromConfig),
)
