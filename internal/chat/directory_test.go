package chat

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/logging"
)

func TestDirectoryGetOrCreateIsIdempotent(t *testing.T) {
	d := NewDirectory(logging.Discard())

	const workers = 32
	rooms := make([]*Room, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rooms[i] = d.GetOrCreate("lobby")
		}()
	}
	wg.Wait()

	for _, room := range rooms {
		assert.Same(t, rooms[0], room)
	}
	assert.Equal(t, 1, d.Len())
	assert.Zero(t, d.MessageCount("lobby"))
	assert.False(t, rooms[0].CreatedAt.IsZero())
}

func TestDirectoryMembersKeepArrivalOrder(t *testing.T) {
	d := NewDirectory(logging.Discard())
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	assert.Equal(t, 1, d.AddMember("lobby", a))
	assert.Equal(t, 2, d.AddMember("lobby", b))
	assert.Equal(t, 3, d.AddMember("lobby", c))
	assert.Equal(t, 3, d.AddMember("lobby", b), "re-adding is a no-op")

	assert.Equal(t, []uuid.UUID{a, b, c}, d.Members("lobby"))

	remaining, deleted := d.RemoveMember("lobby", b)
	assert.Equal(t, 2, remaining)
	assert.False(t, deleted)
	assert.Equal(t, []uuid.UUID{a, c}, d.Members("lobby"))
}

func TestDirectoryDeletesEmptyRoom(t *testing.T) {
	d := NewDirectory(logging.Discard())
	id := uuid.New()
	d.AddMember("lobby", id)

	remaining, deleted := d.RemoveMember("lobby", id)
	assert.Zero(t, remaining)
	assert.True(t, deleted)

	_, ok := d.Get("lobby")
	assert.False(t, ok)
	assert.Nil(t, d.Members("lobby"))
	assert.Zero(t, d.Len())

	remaining, deleted = d.RemoveMember("lobby", id)
	assert.Zero(t, remaining)
	assert.False(t, deleted, "unknown rooms are not deleted twice")
}

func TestDirectoryMessageCount(t *testing.T) {
	d := NewDirectory(logging.Discard())
	assert.Zero(t, d.IncrementMessageCount("missing"))

	d.AddMember("lobby", uuid.New())
	assert.Equal(t, int64(1), d.IncrementMessageCount("lobby"))
	assert.Equal(t, int64(2), d.IncrementMessageCount("lobby"))
	assert.Equal(t, int64(2), d.MessageCount("lobby"))
}

func TestDirectoryStatsSortedByID(t *testing.T) {
	d := NewDirectory(logging.Discard())
	d.AddMember("zeta", uuid.New())
	d.AddMember("alpha", uuid.New())
	d.AddMember("alpha", uuid.New())
	d.IncrementMessageCount("alpha")

	stats := d.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "alpha", stats[0].ID)
	assert.Equal(t, 2, stats[0].Members)
	assert.Equal(t, int64(1), stats[0].Messages)
	assert.Equal(t, "zeta", stats[1].ID)
}
