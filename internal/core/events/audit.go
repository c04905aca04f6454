package events

import (
	"context"
	"log/slog"
)

// AuditLogger returns a handler that writes every event to the log. The
// server subscribes it to all EventTypes.
func AuditLogger(logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		logger.InfoContext(ctx, "audit",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"occurred_at", event.OccurredAt(),
			"payload", event.Payload())
		return nil
	}
}
