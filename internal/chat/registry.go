package chat

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks every joined connection by its connection id.
type Registry struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]*Connection
	logger *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[uuid.UUID]*Connection),
		logger: logger.With(slog.String("component", "registry")),
	}
}

// Register adds conn. A connection id may only be registered once.
func (r *Registry) Register(conn *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn.ID]; exists {
		return fmt.Errorf("register %s: %w", conn.ID, ErrAlreadyRegistered)
	}
	r.conns[conn.ID] = conn
	r.logger.Debug("connection registered", slog.String("connID", conn.ID.String()))
	return nil
}

// Find returns the connection registered under id.
func (r *Registry) Find(id uuid.UUID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// Remove drops id from the registry. Unknown ids are ignored.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return
	}
	delete(r.conns, id)
	r.logger.Debug("connection removed", slog.String("connID", id.String()))
}

// Snapshot returns a stable copy of the registered connections.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
