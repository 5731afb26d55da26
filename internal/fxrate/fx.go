package fxrate

import (
	"github.com/smallbiznis/partnerpay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Service {
	return NewConverter(cfg.FXRateEndpoint, cfg.FXRateAPIKey, cfg.FXRateTimeout, cfg.FXRateCacheTTL, log)
}

var Module = fx.Module("fxrate",
	fx.Provide(NewFromConfig),
)
