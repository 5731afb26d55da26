package program

import (
	"github.com/smallbiznis/partnerpay/internal/program/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("program",
	fx.Provide(repository.Provide),
)
