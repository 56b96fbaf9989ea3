package ws

import "sync"

// wsConn is the subset of *websocket.Conn the client needs. Narrowed to an
// interface so tests can drive a client without a network.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// connWrapper serializes writes; gorilla connections allow at most one
// concurrent writer.
type connWrapper struct {
	conn  wsConn
	mutex sync.Mutex
}

func newConnWrapper(c wsConn) *connWrapper {
	return &connWrapper{conn: c}
}

func (w *connWrapper) WriteJSON(v any) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *connWrapper) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.Close()
}
