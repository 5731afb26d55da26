package audit

import (
	"context"

	"github.com/smallbiznis/partnerpay/internal/audit/domain"
	"github.com/smallbiznis/partnerpay/internal/audit/repository"
	"github.com/smallbiznis/partnerpay/internal/audit/service"
	"github.com/smallbiznis/partnerpay/internal/events"
	"go.uber.org/fx"
)

func registerRecordHandler(worker *events.Worker, svc domain.Service) {
	worker.Register(events.EventAuditRecord, func(ctx context.Context, msg events.Message) error {
		actorType, _ := msg.Payload["actor_type"].(string)
		action, _ := msg.Payload["action"].(string)
		targetType, _ := msg.Payload["target_type"].(string)

		var targetID *string
		if raw, ok := msg.Payload["target_id"].(string); ok && raw != "" {
			targetID = &raw
		}
		metadata, _ := msg.Payload["metadata"].(map[string]any)

		return svc.Record(ctx, actorType, nil, action, targetType, targetID, metadata)
	})
}

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Invoke(registerRecordHandler),
)
