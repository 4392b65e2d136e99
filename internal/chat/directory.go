package chat

import (
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Room is a named group of connections. Members keep their arrival order.
type Room struct {
	ID           string
	CreatedAt    time.Time
	members      []uuid.UUID
	messageCount int64
}

// RoomStats is a point-in-time view of a room.
type RoomStats struct {
	ID        string    `json:"id"`
	Members   int       `json:"members"`
	Messages  int64     `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// Directory maps room ids to rooms. Rooms are created lazily and removed as
// soon as their last member leaves.
type Directory struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	logger *slog.Logger
}

// NewDirectory returns an empty directory.
func NewDirectory(logger *slog.Logger) *Directory {
	return &Directory{
		rooms:  make(map[string]*Room),
		logger: logger.With(slog.String("component", "directory")),
	}
}

// GetOrCreate returns the room for roomID, creating an empty one if needed.
func (d *Directory) GetOrCreate(roomID string) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getOrCreateLocked(roomID)
}

func (d *Directory) getOrCreateLocked(roomID string) *Room {
	if room, ok := d.rooms[roomID]; ok {
		return room
	}
	room := &Room{ID: roomID, CreatedAt: time.Now()}
	d.rooms[roomID] = room
	d.logger.Info("room created", slog.String("roomID", roomID))
	return room
}

// Get returns the room for roomID if it exists.
func (d *Directory) Get(roomID string) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[roomID]
	return room, ok
}

// AddMember appends connID to the room's member list, creating the room if it
// does not exist yet, and returns the member count. Adding an existing member
// is a no-op.
func (d *Directory) AddMember(roomID string, connID uuid.UUID) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	room := d.getOrCreateLocked(roomID)
	if !slices.Contains(room.members, connID) {
		room.members = append(room.members, connID)
	}
	return len(room.members)
}

// RemoveMember removes connID from the room. When the room becomes empty it is
// deleted and deleted is true.
func (d *Directory) RemoveMember(roomID string, connID uuid.UUID) (remaining int, deleted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return 0, false
	}
	if i := slices.Index(room.members, connID); i >= 0 {
		room.members = slices.Delete(room.members, i, i+1)
	}
	if len(room.members) > 0 {
		return len(room.members), false
	}

	delete(d.rooms, roomID)
	d.logger.Info("room removed", slog.String("roomID", roomID), slog.Int64("messages", room.messageCount))
	return 0, true
}

// Members returns the room's member ids in arrival order.
func (d *Directory) Members(roomID string) []uuid.UUID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	return slices.Clone(room.members)
}

// IncrementMessageCount bumps the room's message counter and returns the new
// value. Unknown rooms return 0.
func (d *Directory) IncrementMessageCount(roomID string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return 0
	}
	room.messageCount++
	return room.messageCount
}

// MessageCount returns the number of chat messages sent in roomID.
func (d *Directory) MessageCount(roomID string) int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if room, ok := d.rooms[roomID]; ok {
		return room.messageCount
	}
	return 0
}

// Len returns the number of rooms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

// Stats returns a snapshot of every room sorted by id.
func (d *Directory) Stats() []RoomStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := make([]RoomStats, 0, len(d.rooms))
	for _, room := range d.rooms {
		stats = append(stats, RoomStats{
			ID:        room.ID,
			Members:   len(room.members),
			Messages:  room.messageCount,
			CreatedAt: room.CreatedAt,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ID < stats[j].ID })
	return stats
}
