package partner

import (
	"github.com/smallbiznis/partnerpay/internal/partner/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("partner",
	fx.Provide(repository.Provide),
)
