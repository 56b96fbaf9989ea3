package ws

import (
	"github.com/arjun7543/chatroom/internal/infrastructure/logging"
	"github.com/arjun7543/chatroom/internal/infrastructure/metrics"
)

// Dispatcher fans one event out to every connection attached to a room.
// Delivery is best-effort per recipient: one unreachable client never stops
// the batch and never surfaces an error to the caller.
type Dispatcher struct {
	registry *Registry
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(registry *Registry, logger logging.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger,
		metrics:  m,
	}
}

// Broadcast delivers event to all clients attached to code, minus exclude
// when non-nil. Failed recipients are logged and left for the transport's
// own close notification to clean up.
func (d *Dispatcher) Broadcast(code string, event any, exclude *Client) {
	for _, client := range d.registry.Clients(code) {
		if client == exclude {
			continue
		}

		if err := client.Send(event); err != nil {
			d.metrics.BroadcastFailures.Inc()
			d.logger.Warn(logging.WebSocket, logging.Broadcast, "dropping event for unreachable client", map[logging.ExtraKey]any{
				logging.ClientID:     client.ID,
				logging.RoomCode:     code,
				logging.ErrorMessage: err.Error(),
			})
		}
	}
}
