package notification

import (
	"github.com/smallbiznis/partnerpay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Sender {
	return NewSender(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName, log)
}

var Module = fx.Module("notification",
	fx.Provide(NewFromConfig),
)
