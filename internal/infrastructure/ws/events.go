package ws

// Client → server action types.
const (
	ActionCreate  = "create"
	ActionJoin    = "join"
	ActionMessage = "message"
	ActionLeave   = "leave"
)

// Server → client event types.
const (
	EventCreated    = "created"
	EventJoined     = "joined"
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
	EventMessage    = "message"
	EventError      = "error"
)
