package ws

import "github.com/arjun7543/chatroom/internal/domain"

// ClientEvent is one inbound action read off a connection. Which fields are
// meaningful depends on Type: create/join carry code and user, message
// carries text, leave carries nothing.
type ClientEvent struct {
	Type string `json:"type"`
	Code string `json:"code,omitempty"`
	User string `json:"user,omitempty"`
	Text string `json:"text,omitempty"`
}

// Server events are flat JSON objects; each type gets its own struct so the
// wire shape is fixed at compile time.

type CreatedEvent struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

type JoinedEvent struct {
	Type     string           `json:"type"`
	Code     string           `json:"code"`
	Users    []string         `json:"users"`
	Messages []domain.Message `json:"messages"`
}

type UserJoinedEvent struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type UserLeftEvent struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type MessageEvent struct {
	Type string `json:"type"`
	User string `json:"user"`
	Text string `json:"text"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewCreated(code string) *CreatedEvent {
	return &CreatedEvent{
		Type: EventCreated,
		Code: code,
	}
}

// NewJoined snapshots the room for the joiner. Slices are copied so later
// record mutations cannot leak into an event already queued for delivery.
func NewJoined(room *domain.Room) *JoinedEvent {
	users := make([]string, len(room.Members))
	copy(users, room.Members)

	messages := make([]domain.Message, len(room.Messages))
	copy(messages, room.Messages)

	return &JoinedEvent{
		Type:     EventJoined,
		Code:     room.Code,
		Users:    users,
		Messages: messages,
	}
}

func NewUserJoined(user string) *UserJoinedEvent {
	return &UserJoinedEvent{
		Type: EventUserJoined,
		User: user,
	}
}

func NewUserLeft(user string) *UserLeftEvent {
	return &UserLeftEvent{
		Type: EventUserLeft,
		User: user,
	}
}

func NewMessage(user, text string) *MessageEvent {
	return &MessageEvent{
		Type: EventMessage,
		User: user,
		Text: text,
	}
}

func NewError(message string) *ErrorEvent {
	return &ErrorEvent{
		Type:    EventError,
		Message: message,
	}
}
