package service

import (
	"context"

	"athena-be/internal/pkg/logger"
	"athena-be/pkg/events"
)

const logModuleEvents = "EVENTS"

// NewEventAuditHandler logs every Athena domain event read back from the
// broker, giving a durable activity trail next to the application log.
func NewEventAuditHandler(log logger.ILogger) func(ctx context.Context, event events.Event) error {
	return func(ctx context.Context, event events.Event) error {
		details := make(map[string]interface{}, len(event.Payload())+2)
		for k, v := range event.Payload() {
			details[k] = v
		}
		details["event"] = event.EventType()
		details["occurred_at"] = event.Timestamp()

		log.Info(logModuleEvents, "Athena event", details)
		return nil
	}
}
