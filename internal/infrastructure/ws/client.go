package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/arjun7543/chatroom/internal/infrastructure/logging"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrSlowClient   = errors.New("client send buffer full")
	ErrClientClosed = errors.New("client closed")
)

// Client is one live connection. Its read goroutine is the only driver of
// protocol actions for this connection, so actions from a single client are
// naturally ordered.
type Client struct {
	ID string

	conn    *connWrapper
	send    chan any
	done    chan struct{}
	session Session
	manager *Manager
	logger  logging.Logger

	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, manager *Manager, logger logging.Logger) *Client {
	return newClient(conn, manager, logger)
}

func newClient(conn wsConn, manager *Manager, logger logging.Logger) *Client {
	return &Client{
		ID:      uuid.NewString(),
		conn:    newConnWrapper(conn),
		send:    make(chan any, 64), // buffered to avoid dead-locks on slow clients
		done:    make(chan struct{}),
		manager: manager,
		logger:  logger,
	}
}

// Send queues an event for delivery. It never blocks: a full buffer or a
// closed client yields an error the caller may log and move on from.
func (c *Client) Send(event any) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- event:
		return nil
	default:
		return ErrSlowClient
	}
}

// ReadPump decodes inbound actions and hands them to the session manager.
// A transport close, expected or not, ends with the same disconnect path.
func (c *Client) ReadPump(ctx context.Context) {
	defer c.manager.Disconnect(context.WithoutCancel(ctx), c)

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn(logging.WebSocket, logging.Membership, "read error", map[logging.ExtraKey]any{
					logging.ClientID:     c.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			_ = c.Send(NewError("Malformed event."))
			continue
		}

		switch ev.Type {
		case ActionCreate:
			c.manager.Create(ctx, c, ev.Code, ev.User)
		case ActionJoin:
			c.manager.Join(ctx, c, ev.Code, ev.User)
		case ActionMessage:
			c.manager.Message(ctx, c, ev.Text)
		case ActionLeave:
			c.manager.Leave(ctx, c)
			// Mirror the explicit-leave contract: the server closes the
			// connection once the leave effect is applied.
			return
		default:
			_ = c.Send(NewError("Unknown action."))
		}
	}
}

// WritePump flushes queued events to the peer until the client is closed or
// a write fails.
func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn(logging.WebSocket, logging.Broadcast, "write error", map[logging.ExtraKey]any{
					logging.ClientID:     c.ID,
					logging.ErrorMessage: err.Error(),
				})
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
