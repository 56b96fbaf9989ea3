package chat

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/arjun7543/chatroom/internal/infrastructure/logging"
	"github.com/arjun7543/chatroom/internal/infrastructure/ws"
)

type Handler struct {
	manager  *ws.Manager
	logger   logging.Logger
	upgrader websocket.Upgrader
}

func NewHandler(manager *ws.Manager, logger logging.Logger, allowedOrigins []string) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		set[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin header.
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeWS upgrades the request and runs the connection's pumps. The read
// pump owns the request lifetime; it returns when the peer goes away or
// leaves explicitly.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(logging.WebSocket, logging.Membership, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	client := ws.NewClient(conn, h.manager, h.logger)

	h.logger.Debug(logging.WebSocket, logging.Membership, "client connected", map[logging.ExtraKey]any{
		logging.ClientID: client.ID,
	})

	go client.WritePump()

	// The request context dies when this handler returns, but the hijacked
	// connection outlives it; detach cancellation and keep the values.
	client.ReadPump(context.WithoutCancel(r.Context()))
}
