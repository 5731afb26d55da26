package reward

import (
	"github.com/smallbiznis/partnerpay/internal/reward/repository"
	"github.com/smallbiznis/partnerpay/internal/reward/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reward",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
