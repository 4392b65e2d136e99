package chat

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Router decodes inbound envelopes and applies them to the registry and the
// directory. Every compound operation runs under a single lock, and no
// network I/O happens while it is held: sockets only enqueue frames.
type Router struct {
	mu        sync.Mutex
	registry  *Registry
	directory *Directory
	logger    *slog.Logger
	now       func() time.Time
}

// Stats is a point-in-time view of the whole server.
type Stats struct {
	Connections int         `json:"connections"`
	Rooms       []RoomStats `json:"rooms"`
}

// NewRouter creates a router over the given registry and directory.
func NewRouter(registry *Registry, directory *Directory, logger *slog.Logger) *Router {
	return &Router{
		registry:  registry,
		directory: directory,
		logger:    logger.With(slog.String("component", "router")),
		now:       time.Now,
	}
}

// HandleMessage decodes raw and dispatches it on behalf of sock. Validation
// failures are reported to sock and returned; malformed frames are logged and
// returned without any reply.
func (r *Router) HandleMessage(sock Socket, raw []byte) error {
	logger := r.logger.With(slog.String("connID", sock.ID().String()))

	in, err := DecodeInbound(raw)
	if err != nil {
		logger.Warn("failed to decode message", slog.Any("error", err))
		return err
	}
	logger.Debug("received message", slog.String("type", in.Type))

	switch in.Type {
	case TypeJoin:
		var p JoinPayload
		if err = decodePayload(in.Payload, &p); err == nil {
			err = r.Join(sock, p)
		}
	case TypeChat:
		var p ChatPayload
		if err = decodePayload(in.Payload, &p); err == nil {
			err = r.Chat(sock, p)
		}
	default:
		logger.Info("unknown message type", slog.String("type", in.Type))
		err = fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}

	if err == nil {
		return nil
	}
	if errors.Is(err, ErrMalformedEnvelope) {
		logger.Warn("failed to decode payload", slog.String("type", in.Type), slog.Any("error", err))
		return err
	}
	if text, ok := ClientMessage(err); ok {
		r.send(sock, NewErrorEnvelope(text))
	}
	return err
}

// Join places sock in the requested room, leaving its current room first.
func (r *Router) Join(sock Socket, p JoinPayload) error {
	if p.RoomID == "" || p.UserName == "" {
		return ErrMissingJoinField
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.registry.Find(sock.ID()); ok {
		r.logger.Info("user is switching rooms",
			slog.String("userName", existing.UserName),
			slog.String("from", existing.RoomID),
			slog.String("to", p.RoomID))
		r.cleanupLocked(sock.ID())
	}

	conn := NewConnection(sock)
	conn.RoomID = p.RoomID
	conn.UserName = p.UserName
	if err := r.registry.Register(conn); err != nil {
		return err
	}
	r.directory.GetOrCreate(p.RoomID)

	if name := r.uniqueNameLocked(p.RoomID, p.UserName); name != p.UserName {
		conn.UserName = name
		r.send(sock, NewSystemEnvelope("Username was changed to \"" + name + "\" to avoid conflicts", r.now()))
	}

	count := r.directory.AddMember(p.RoomID, conn.ID)
	r.logger.Info("user joined room",
		slog.String("connID", conn.ID.String()),
		slog.String("userName", conn.UserName),
		slog.String("roomID", conn.RoomID),
		slog.Int("members", count))

	r.send(sock, NewSystemEnvelope(fmt.Sprintf("Welcome to room %s. %d total users including you.", p.RoomID, count), r.now()))
	r.broadcastLocked(p.RoomID, encode(NewSystemEnvelope(conn.UserName+" joined the room", r.now())), conn.ID)

	if others := r.memberNamesLocked(p.RoomID, conn.ID); len(others) > 0 {
		r.send(sock, NewSystemEnvelope("Other users in room: "+strings.Join(others, ", "), r.now()))
	}
	return nil
}

// Chat fans a message out to every member of the sender's room, the sender
// included.
func (r *Router) Chat(sock Socket, p ChatPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.registry.Find(sock.ID())
	if !ok || !conn.InRoom() {
		return ErrNotJoined
	}

	text := strings.TrimSpace(p.Message)
	if text == "" {
		return ErrEmptyMessage
	}

	count := r.directory.IncrementMessageCount(conn.RoomID)
	r.logger.Debug("chat message",
		slog.String("userName", conn.UserName),
		slog.String("roomID", conn.RoomID),
		slog.Int64("roomMessages", count))

	r.broadcastLocked(conn.RoomID, encode(NewChatEnvelope(conn.UserName, text, conn.RoomID, r.now())), uuid.Nil)
	return nil
}

// Broadcast delivers frame to every open member of roomID except exclude and
// returns the number of sockets that accepted it. Pass uuid.Nil to exclude
// nobody.
func (r *Router) Broadcast(roomID string, frame []byte, exclude uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcastLocked(roomID, frame, exclude)
}

func (r *Router) broadcastLocked(roomID string, frame []byte, exclude uuid.UUID) int {
	delivered := 0
	for _, id := range r.directory.Members(roomID) {
		if id == exclude {
			continue
		}
		conn, ok := r.registry.Find(id)
		if !ok || !conn.Socket.Open() {
			continue
		}
		if !conn.Socket.Send(frame) {
			r.logger.Debug("dropped frame for slow peer", slog.String("connID", id.String()), slog.String("roomID", roomID))
			continue
		}
		delivered++
	}
	return delivered
}

// Cleanup removes the connection from the registry and its room and tells the
// remaining members. It reports whether anything was removed; calling it again
// for the same id is a no-op.
func (r *Router) Cleanup(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cleanupLocked(id)
}

func (r *Router) cleanupLocked(id uuid.UUID) bool {
	conn, ok := r.registry.Find(id)
	if !ok {
		return false
	}
	r.registry.Remove(id)

	if conn.InRoom() {
		remaining, deleted := r.directory.RemoveMember(conn.RoomID, id)
		if !deleted {
			r.broadcastLocked(conn.RoomID, encode(NewSystemEnvelope(conn.UserName+" left the room", r.now())), id)
			r.logger.Info("room members changed", slog.String("roomID", conn.RoomID), slog.Int("members", remaining))
		}
	}

	r.logger.Info("user disconnected",
		slog.String("connID", id.String()),
		slog.String("userName", conn.UserName),
		slog.Int("connections", r.registry.Len()))
	return true
}

// Stats returns the current connection and room counts.
func (r *Router) Stats() Stats {
	return Stats{
		Connections: r.registry.Len(),
		Rooms:       r.directory.Stats(),
	}
}

// uniqueNameLocked returns name, or the first of "name 2", "name 3", ... that
// no member of roomID is using.
func (r *Router) uniqueNameLocked(roomID, name string) string {
	taken := make(map[string]struct{})
	for _, other := range r.memberNamesLocked(roomID, uuid.Nil) {
		taken[other] = struct{}{}
	}
	if _, ok := taken[name]; !ok {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s %d", name, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// memberNamesLocked lists member names of roomID in arrival order, skipping
// exclude.
func (r *Router) memberNamesLocked(roomID string, exclude uuid.UUID) []string {
	var names []string
	for _, id := range r.directory.Members(roomID) {
		if id == exclude {
			continue
		}
		if conn, ok := r.registry.Find(id); ok {
			names = append(names, conn.UserName)
		}
	}
	return names
}

func (r *Router) send(sock Socket, v any) {
	if !sock.Send(encode(v)) {
		r.logger.Debug("dropped direct frame", slog.String("connID", sock.ID().String()))
	}
}
