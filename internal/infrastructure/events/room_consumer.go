package events

import (
	"context"
	"encoding/json"

	"github.com/arjun7543/chatroom/internal/domain"
	"github.com/arjun7543/chatroom/internal/infrastructure/logging"
	"github.com/arjun7543/chatroom/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

var routingKeyToEventType = map[string]domain.RoomEventType{
	"room.created":       domain.EventRoomCreated,
	"room.deleted":       domain.EventRoomDeleted,
	"member.joined":      domain.EventMemberJoined,
	"member.left":        domain.EventMemberLeft,
	"room.full_rejected": domain.EventRoomFull,
}

// roomConsumer turns lifecycle events into audit log documents.
type roomConsumer struct {
	rabbitmq *messaging.RabbitMQ
	audit    domain.RoomAuditRepository
	logger   logging.Logger
}

func NewRoomConsumer(rabbitmq *messaging.RabbitMQ, audit domain.RoomAuditRepository, logger logging.Logger) *roomConsumer {
	return &roomConsumer{
		rabbitmq: rabbitmq,
		audit:    audit,
		logger:   logger,
	}
}

func (c *roomConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.RoomsQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		eventType, ok := routingKeyToEventType[msg.RoutingKey]
		if !ok {
			c.logger.Warn(logging.RabbitMQ, logging.Consume, "unknown routing key", map[logging.ExtraKey]any{
				logging.EventType: msg.RoutingKey,
			})
			return nil // drop silently, nothing to retry
		}

		var payload messaging.RoomEventData
		if err := unwrap(msg.Body, &payload); err != nil {
			c.logger.Error(logging.RabbitMQ, logging.Consume, "failed to unmarshal room event", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
			return err
		}

		metadata := map[string]any{
			"member_count": len(payload.Room.Members),
		}
		if payload.User != "" {
			metadata["user"] = payload.User
		}

		entry := domain.NewRoomAuditLog(payload.Room.Code, eventType, metadata)
		if err := c.audit.Log(ctx, entry); err != nil {
			c.logger.Error(logging.RabbitMQ, logging.Consume, "failed to write audit log", map[logging.ExtraKey]any{
				logging.RoomCode:     payload.Room.Code,
				logging.EventType:    string(eventType),
				logging.ErrorMessage: err.Error(),
			})
			return err
		}

		return nil
	})
}

func unwrap(body []byte, payload *messaging.RoomEventData) error {
	var envelope struct {
		Data []byte `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Data, payload)
}
