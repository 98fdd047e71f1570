package chat

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks live connections by id.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	rooms *Rooms
}

// NewRegistry returns an empty registry. Unregister removes connections from
// their room in rooms.
func NewRegistry(rooms *Rooms) *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		rooms: rooms,
	}
}

// Register assigns the connection a fresh id and records it.
func (r *Registry) Register(c *Connection) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.id == "" {
		c.id = uuid.NewString()
	}
	r.conns[c.id] = c
	return c.id
}

// Unregister forgets the connection and removes it from its room. Unknown
// ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomID != "" {
		r.rooms.Leave(c.roomID, c.id)
		c.roomID = ""
	}
}

// Lookup returns the connection registered under id.
func (r *Registry) Lookup(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot returns the registered connections at the time of the call.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}
