package events

import (
	"context"
	"encoding/json"

	"github.com/arjun7543/chatroom/internal/domain"
	"github.com/arjun7543/chatroom/internal/infrastructure/contracts"
	"github.com/arjun7543/chatroom/internal/infrastructure/messaging"
)

// RoomPublisher pushes room lifecycle events onto the topic exchange so
// out-of-band consumers (audit logging, analytics) see membership churn
// without touching the hot path.
type RoomPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewRoomPublisher(rabbitmq *messaging.RabbitMQ) *RoomPublisher {
	return &RoomPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *RoomPublisher) RoomCreated(ctx context.Context, room *domain.Room) error {
	return p.publish(ctx, contracts.EventRoomCreated, room, "")
}

func (p *RoomPublisher) RoomDeleted(ctx context.Context, room *domain.Room) error {
	return p.publish(ctx, contracts.EventRoomDeleted, room, "")
}

func (p *RoomPublisher) MemberJoined(ctx context.Context, room *domain.Room, user string) error {
	return p.publish(ctx, contracts.EventMemberJoined, room, user)
}

func (p *RoomPublisher) MemberLeft(ctx context.Context, room *domain.Room, user string) error {
	return p.publish(ctx, contracts.EventMemberLeft, room, user)
}

func (p *RoomPublisher) RoomFullRejected(ctx context.Context, room *domain.Room, user string) error {
	return p.publish(ctx, contracts.EventRoomFull, room, user)
}

func (p *RoomPublisher) publish(ctx context.Context, routingKey string, room *domain.Room, user string) error {
	payload := messaging.RoomEventData{
		Room: *room,
		User: user,
	}

	roomEventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		RoomCode: room.Code,
		Data:     roomEventJSON,
	})
}
