package ports

import (
	"context"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// Notifier accepts events for fanout. Notify must not block the caller and
// has no failure mode visible to it.
type Notifier interface {
	Notify(event domain.NotificationEvent)
}

// Broadcaster delivers one event to every connected subscriber.
type Broadcaster interface {
	Broadcast(ctx context.Context, event domain.NotificationEvent) error
}
