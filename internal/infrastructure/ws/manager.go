package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/arjun7543/chatroom/internal/domain"
	"github.com/arjun7543/chatroom/internal/infrastructure/logging"
	"github.com/arjun7543/chatroom/internal/infrastructure/metrics"
	"github.com/arjun7543/chatroom/internal/infrastructure/validate"
)

// User-facing rejection reasons. The join failure string is part of the wire
// contract clients already match on, so it covers both not-found and full.
const (
	reasonRoomUnavailable = "Room full or not found."
	reasonNameTaken       = "Name already taken."
	reasonAlreadyInRoom   = "Already in a room."
	reasonNotInRoom       = "You are not in a room."
	reasonCodeInUse       = "Room code already in use."
	reasonStorageFault    = "Something went wrong. Please try again."
)

var (
	validateRoomCode = validate.Field("room code", validate.Compose(
		validate.Required(),
		validate.LengthBetween(4, 12),
		validate.Alphanumeric(),
	))

	validateDisplayName = validate.Field("name", validate.Compose(
		validate.Required(),
		validate.NoSpaces(),
		validate.LengthBetween(1, 32),
		validate.Matches(`^[a-zA-Z0-9_-]+$`,
			"name can only contain letters, numbers, underscores, and hyphens"),
	))
)

// LifecyclePublisher mirrors room lifecycle onto a message bus. Publishing is
// fire-and-forget from the manager's point of view.
type LifecyclePublisher interface {
	RoomCreated(ctx context.Context, room *domain.Room) error
	RoomDeleted(ctx context.Context, room *domain.Room) error
	MemberJoined(ctx context.Context, room *domain.Room, user string) error
	MemberLeft(ctx context.Context, room *domain.Room, user string) error
	RoomFullRejected(ctx context.Context, room *domain.Room, user string) error
}

// Manager owns the create/join/message/leave protocol. It keeps the durable
// record (ground truth for member names and the message log) and the
// connection registry (routing index) reconciled by running every mutating
// action for a room code inside that code's exclusive critical section.
// Independent rooms never contend on a shared lock.
type Manager struct {
	store      domain.RoomStore
	registry   *Registry
	dispatcher *Dispatcher
	publisher  LifecyclePublisher // nil when messaging is disabled
	logger     logging.Logger
	metrics    *metrics.Metrics

	locksMu sync.Mutex
	locks   map[string]*codeLock
}

type codeLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(
	store domain.RoomStore,
	registry *Registry,
	dispatcher *Dispatcher,
	publisher LifecyclePublisher,
	logger logging.Logger,
	m *metrics.Metrics,
) *Manager {
	return &Manager{
		store:      store,
		registry:   registry,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		metrics:    m,
		locks:      make(map[string]*codeLock),
	}
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

// lockCode takes the exclusive critical section for a room code. Lock
// entries are reference-counted so the map does not accumulate codes of
// rooms that no longer exist.
func (m *Manager) lockCode(code string) (release func()) {
	m.locksMu.Lock()
	l, ok := m.locks[code]
	if !ok {
		l = &codeLock{}
		m.locks[code] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, code)
		}
		m.locksMu.Unlock()
	}
}

// Create makes a fresh room with the actor as its only member and binds the
// session. The caller supplies the code; collisions surface as an error
// event rather than being checked up front.
func (m *Manager) Create(ctx context.Context, c *Client, code, name string) {
	if c.session.Bound() {
		_ = c.Send(NewError(reasonAlreadyInRoom))
		return
	}
	if err := validateRoomCode(code); err != nil {
		_ = c.Send(NewError(err.Error()))
		return
	}
	if err := validateDisplayName(name); err != nil {
		_ = c.Send(NewError(err.Error()))
		return
	}

	release := m.lockCode(code)
	defer release()

	room := domain.NewRoom(code, name)
	if err := m.store.Create(ctx, room); err != nil {
		if errors.Is(err, domain.ErrRoomAlreadyExists) {
			_ = c.Send(NewError(reasonCodeInUse))
			return
		}
		m.storageFault(c, "create", code, err)
		return
	}

	m.registry.Attach(code, c)
	c.session.bind(code, name)
	m.metrics.RoomsCreated.Inc()

	_ = c.Send(NewCreated(code))
	m.publishCreated(ctx, room)

	m.logger.Info(logging.WebSocket, logging.RoomLifecycle, "room created", map[logging.ExtraKey]any{
		logging.RoomCode: code,
		logging.Username: name,
		logging.ClientID: c.ID,
	})
}

// Join adds the actor to an existing room and hands back a snapshot of the
// record as of the join. Everyone already attached learns about the
// newcomer.
func (m *Manager) Join(ctx context.Context, c *Client, code, name string) {
	if c.session.Bound() {
		_ = c.Send(NewError(reasonAlreadyInRoom))
		return
	}
	if err := validateRoomCode(code); err != nil {
		_ = c.Send(NewError(err.Error()))
		return
	}
	if err := validateDisplayName(name); err != nil {
		_ = c.Send(NewError(err.Error()))
		return
	}

	release := m.lockCode(code)
	defer release()

	room, err := m.store.Find(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			m.metrics.JoinRejections.WithLabelValues("not_found").Inc()
			_ = c.Send(NewError(reasonRoomUnavailable))
			return
		}
		m.storageFault(c, "find", code, err)
		return
	}

	// The capacity check lives inside the critical section: two concurrent
	// joins can never both pass it.
	if err := room.AddMember(name); err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomFull):
			m.metrics.JoinRejections.WithLabelValues("full").Inc()
			_ = c.Send(NewError(reasonRoomUnavailable))
			m.publishFullRejected(ctx, room, name)
		case errors.Is(err, domain.ErrNameTaken):
			m.metrics.JoinRejections.WithLabelValues("name_taken").Inc()
			_ = c.Send(NewError(reasonNameTaken))
		default:
			_ = c.Send(NewError(reasonRoomUnavailable))
		}
		return
	}

	if err := m.store.Save(ctx, room); err != nil {
		// Durable state unchanged; leave registry and session untouched so
		// the two views cannot diverge.
		m.storageFault(c, "save", code, err)
		return
	}

	m.registry.Attach(code, c)
	c.session.bind(code, name)

	_ = c.Send(NewJoined(room))
	m.dispatcher.Broadcast(code, NewUserJoined(name), c)
	m.publishJoined(ctx, room, name)

	m.logger.Info(logging.WebSocket, logging.Membership, "member joined", map[logging.ExtraKey]any{
		logging.RoomCode:    code,
		logging.Username:    name,
		logging.ClientID:    c.ID,
		logging.MemberCount: len(room.Members),
	})
}

// Message appends a chat line to the record and fans it out to every
// attached connection, the sender included. Per-room ordering equals
// acceptance order because the append happens inside the critical section.
func (m *Manager) Message(ctx context.Context, c *Client, text string) {
	if !c.session.Bound() {
		_ = c.Send(NewError(reasonNotInRoom))
		return
	}

	code := c.session.RoomCode
	name := c.session.DisplayName

	release := m.lockCode(code)
	defer release()

	room, err := m.store.Find(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			// Bound session but no record: the room is gone, so the binding
			// is stale. Unbind instead of letting the client loop on errors
			// against a dead code.
			m.registry.Detach(code, c)
			c.session.clear()
			_ = c.Send(NewError(reasonRoomUnavailable))
			return
		}
		m.storageFault(c, "find", code, err)
		return
	}

	room.Append(name, text)
	if err := m.store.Save(ctx, room); err != nil {
		m.storageFault(c, "save", code, err)
		return
	}

	m.metrics.MessagesTotal.Inc()
	m.dispatcher.Broadcast(code, NewMessage(name, text), nil)
}

// Leave handles the explicit leave action.
func (m *Manager) Leave(ctx context.Context, c *Client) {
	if !c.session.Bound() {
		_ = c.Send(NewError(reasonNotInRoom))
		return
	}
	m.leave(ctx, c)
}

// Disconnect is the transport-close path: same membership effect as Leave,
// and the client is torn down unconditionally. Safe to call for sessions
// that never bound.
func (m *Manager) Disconnect(ctx context.Context, c *Client) {
	if c.session.Bound() {
		m.leave(ctx, c)
	}
	c.close()
	_ = c.conn.Close()
}

func (m *Manager) leave(ctx context.Context, c *Client) {
	code := c.session.RoomCode
	name := c.session.DisplayName

	release := m.lockCode(code)
	defer release()

	room, err := m.store.Find(ctx, code)
	switch {
	case err == nil:
		_ = room.RemoveMember(name)
	case errors.Is(err, domain.ErrRoomNotFound):
		// Record already gone; nothing durable to update.
	default:
		m.metrics.StorageFaults.WithLabelValues("find").Inc()
		m.logger.Error(logging.WebSocket, logging.Persistence, "failed to load room on leave", map[logging.ExtraKey]any{
			logging.RoomCode:     code,
			logging.ErrorMessage: err.Error(),
		})
		room = nil
	}

	// The connection is going away no matter what storage said: detach first
	// so the departed member never sees their own user_left.
	m.registry.Detach(code, c)
	c.session.clear()

	var deleted *domain.Room
	if room != nil {
		// Delete when membership hits zero, and also when no connections
		// remain attached: a record nobody is attached to is unreachable,
		// and a name stranded there by an earlier failed write would
		// otherwise keep the room alive forever.
		if room.Empty() || m.registry.Count(code) == 0 {
			if err := m.store.Delete(ctx, code); err != nil {
				m.metrics.StorageFaults.WithLabelValues("delete").Inc()
				m.logger.Error(logging.WebSocket, logging.Persistence, "failed to delete empty room", map[logging.ExtraKey]any{
					logging.RoomCode:     code,
					logging.ErrorMessage: err.Error(),
				})
			} else {
				deleted = room
			}
		} else {
			if err := m.store.Save(ctx, room); err != nil {
				m.metrics.StorageFaults.WithLabelValues("save").Inc()
				m.logger.Error(logging.WebSocket, logging.Persistence, "failed to persist member removal", map[logging.ExtraKey]any{
					logging.RoomCode:     code,
					logging.Username:     name,
					logging.ErrorMessage: err.Error(),
				})
			}
		}
	}

	m.dispatcher.Broadcast(code, NewUserLeft(name), nil)

	if deleted != nil {
		m.publishDeleted(ctx, deleted)
	} else if room != nil {
		m.publishLeft(ctx, room, name)
	}

	m.logger.Info(logging.WebSocket, logging.Membership, "member left", map[logging.ExtraKey]any{
		logging.RoomCode: code,
		logging.Username: name,
		logging.ClientID: c.ID,
	})
}

func (m *Manager) storageFault(c *Client, op, code string, err error) {
	m.metrics.StorageFaults.WithLabelValues(op).Inc()
	m.logger.Error(logging.WebSocket, logging.Persistence, "room store operation failed", map[logging.ExtraKey]any{
		logging.RoomCode:     code,
		logging.ErrorMessage: err.Error(),
	})
	_ = c.Send(NewError(reasonStorageFault))
}

func (m *Manager) publishCreated(ctx context.Context, room *domain.Room) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.RoomCreated(ctx, room); err != nil {
		m.logPublishError(room.Code, err)
	}
}

func (m *Manager) publishJoined(ctx context.Context, room *domain.Room, user string) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.MemberJoined(ctx, room, user); err != nil {
		m.logPublishError(room.Code, err)
	}
}

func (m *Manager) publishLeft(ctx context.Context, room *domain.Room, user string) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.MemberLeft(ctx, room, user); err != nil {
		m.logPublishError(room.Code, err)
	}
}

func (m *Manager) publishFullRejected(ctx context.Context, room *domain.Room, user string) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.RoomFullRejected(ctx, room, user); err != nil {
		m.logPublishError(room.Code, err)
	}
}

func (m *Manager) publishDeleted(ctx context.Context, room *domain.Room) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.RoomDeleted(ctx, room); err != nil {
		m.logPublishError(room.Code, err)
	}
}

func (m *Manager) logPublishError(code string, err error) {
	m.logger.Warn(logging.RabbitMQ, logging.Publish, "failed to publish lifecycle event", map[logging.ExtraKey]any{
		logging.RoomCode:     code,
		logging.ErrorMessage: err.Error(),
	})
}
