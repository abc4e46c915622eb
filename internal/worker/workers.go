package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/library-service/internal/events"
	"github.com/spec-kit/library-service/internal/service"
)

// StartStatisticsWorker registers cache invalidation handlers.
func StartStatisticsWorker(statistics *service.StatisticsService, dispatcher events.Dispatcher) {
	if statistics == nil {
		return
	}
	statistics.RegisterHandlers(dispatcher)
}

// StartAuditWorker logs every domain event.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil || logger == nil {
		return
	}
	audit := func(_ context.Context, event events.Event) error {
		logger.Info("domain event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("actor_id", event.ActorID),
			zap.Int64("resource_id", event.ResourceID),
			zap.Any("payload", event.Payload),
		)
		return nil
	}
	for _, eventType := range events.CatalogEvents {
		dispatcher.Subscribe(eventType, audit)
	}
}
