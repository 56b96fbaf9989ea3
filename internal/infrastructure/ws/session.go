package ws

// Session is the per-connection binding of room code and display name.
// It is owned by the connection's read goroutine and only mutated by the
// session manager inside the per-room critical section, so it needs no
// locking of its own.
type Session struct {
	RoomCode    string
	DisplayName string
}

// Bound reports whether the session is attached to a room.
func (s *Session) Bound() bool {
	return s.RoomCode != ""
}

func (s *Session) bind(code, name string) {
	s.RoomCode = code
	s.DisplayName = name
}

func (s *Session) clear() {
	s.RoomCode = ""
	s.DisplayName = ""
}
