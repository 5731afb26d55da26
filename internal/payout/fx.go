package payout

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/events"
	"github.com/smallbiznis/partnerpay/internal/payout/domain"
	"github.com/smallbiznis/partnerpay/internal/payout/repository"
	"github.com/smallbiznis/partnerpay/internal/payout/service"
	"go.uber.org/fx"
)

func registerRecomputeHandler(worker *events.Worker, svc domain.Service) {
	worker.Register(events.EventPayoutRecompute, func(ctx context.Context, msg events.Message) error {
		raw, _ := msg.Payload["payout_id"].(string)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		return svc.Reconcile(ctx, snowflake.ID(id))
	})
}

var Module = fx.Module("payout",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Invoke(registerRecomputeHandler),
)
