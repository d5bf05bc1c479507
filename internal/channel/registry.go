package channel

import (
	"sync"
)

// Registry maps connection ids to live handles. One instance is shared by the
// HTTP handlers, the ingestion path and the synchronizer.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[int64]Conn)}
}

// Register installs (or replaces) the handle for a connection id.
func (r *Registry) Register(id int64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = conn
}

// Get returns the live handle for a connection id.
func (r *Registry) Get(id int64) (Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	if !ok {
		return nil, ErrNotRegistered
	}
	return conn, nil
}

// Remove drops the handle for a connection id, returning it so the caller can
// close it outside the lock.
func (r *Registry) Remove(id int64) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	return conn, ok
}

// IDs returns the ids of all registered connections.
func (r *Registry) IDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}
