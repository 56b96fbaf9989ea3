package audit

import "github.com/arjun7543/chatroom/internal/domain"

type auditResponse struct {
	RoomCode string                `json:"roomCode"`
	Events   []domain.RoomAuditLog `json:"events"`
}
