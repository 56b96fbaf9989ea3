package ws

import (
	"sync"

	"github.com/arjun7543/chatroom/internal/infrastructure/metrics"
)

// Registry is the process-local index of which live connections are attached
// to which room code. It is a routing index only; member names live in the
// durable record.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	metrics *metrics.Metrics
}

func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		rooms:   make(map[string]map[*Client]struct{}),
		metrics: m,
	}
}

func (r *Registry) Attach(code string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients, ok := r.rooms[code]
	if !ok {
		clients = make(map[*Client]struct{})
		r.rooms[code] = clients
		r.metrics.ActiveRooms.Inc()
	}

	if _, exists := clients[c]; !exists {
		clients[c] = struct{}{}
		r.metrics.ActiveConnections.Inc()
	}
}

// Detach is an idempotent no-op for unknown codes or handles; leave/close
// ordering races make both legitimate.
func (r *Registry) Detach(code string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients, ok := r.rooms[code]
	if !ok {
		return
	}

	if _, exists := clients[c]; !exists {
		return
	}

	delete(clients, c)
	r.metrics.ActiveConnections.Dec()

	if len(clients) == 0 {
		delete(r.rooms, code)
		r.metrics.ActiveRooms.Dec()
	}
}

// Clients returns a snapshot of the handles attached to a code; empty for an
// absent code.
func (r *Registry) Clients(code string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.rooms[code]))
	for c := range r.rooms[code] {
		clients = append(clients, c)
	}
	return clients
}

func (r *Registry) Count(code string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[code])
}
