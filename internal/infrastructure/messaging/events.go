package messaging

import "github.com/arjun7543/chatroom/internal/domain"

const (
	RoomsQueue      = "rooms"
	DeadLetterQueue = "dead_letter_queue"
)

type RoomEventData struct {
	Room domain.Room `json:"room"`
	User string      `json:"user,omitempty"`
}
