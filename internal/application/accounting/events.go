package accounting

import (
	"context"

	"github.com/erp/fiscal/internal/domain/shared"
	"go.uber.org/zap"
)

// EventSource is an aggregate carrying pending domain events
type EventSource interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// PublishEvents publishes and clears the pending events of sources. Publishing
// happens after commit, so a failure is logged and never undoes the write.
func PublishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, sources ...EventSource) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		events := src.GetDomainEvents()
		if publisher != nil && len(events) > 0 {
			if err := publisher.Publish(ctx, events...); err != nil {
				logger.Warn("failed to publish domain events",
					zap.Int("count", len(events)),
					zap.String("event_type", events[0].EventType()),
					zap.Error(err),
				)
			}
		}
		src.ClearDomainEvents()
	}
}
