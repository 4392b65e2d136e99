// Package chat holds the room state machine: which connections are live,
// which rooms exist, and how join, chat, and teardown requests move them.
//
// All state is in memory. A Router serialises every compound mutation, so the
// Registry and Directory never disagree about who is in which room.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Socket is the outbound half of a client transport as seen by the chat core.
type Socket interface {
	// ID returns the server-assigned connection id.
	ID() uuid.UUID
	// Open reports whether the socket can still accept writes.
	Open() bool
	// Send enqueues a frame without blocking. It returns false when the frame
	// was dropped.
	Send(frame []byte) bool
}

// Connection is a joined client and its resolved identity.
//
// RoomID and UserName are mutated only while the owning Router holds its lock.
type Connection struct {
	ID       uuid.UUID
	Socket   Socket
	RoomID   string
	UserName string
	JoinedAt time.Time
}

// NewConnection wraps a socket in a Connection with no room.
func NewConnection(sock Socket) *Connection {
	return &Connection{
		ID:       sock.ID(),
		Socket:   sock,
		JoinedAt: time.Now(),
	}
}

// InRoom reports whether the connection currently belongs to a room.
func (c *Connection) InRoom() bool {
	return c.RoomID != ""
}
