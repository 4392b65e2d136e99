package chat

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/logging"
)

// fakeSocket records every frame it accepts.
type fakeSocket struct {
	id uuid.UUID

	mu     sync.Mutex
	closed bool
	full   bool
	frames [][]byte
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{id: uuid.New()}
}

func (s *fakeSocket) ID() uuid.UUID { return s.id }

func (s *fakeSocket) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *fakeSocket) Send(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.full {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func (s *fakeSocket) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// messages decodes and drains every frame received so far.
func (s *fakeSocket) messages(t *testing.T) []map[string]string {
	t.Helper()
	s.mu.Lock()
	frames := s.frames
	s.frames = nil
	s.mu.Unlock()

	out := make([]map[string]string, 0, len(frames))
	for _, f := range frames {
		var m map[string]string
		require.NoError(t, json.Unmarshal(f, &m), "frame %s", f)
		out = append(out, m)
	}
	return out
}

func messageTexts(msgs []map[string]string) []string {
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m["message"])
	}
	return texts
}

type testRouter struct {
	*Router
	registry  *Registry
	directory *Directory
}

func newTestRouter() *testRouter {
	logger := logging.Discard()
	registry := NewRegistry(logger)
	directory := NewDirectory(logger)
	router := NewRouter(registry, directory, logger)
	router.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return &testRouter{Router: router, registry: registry, directory: directory}
}

func frame(t *testing.T, typ string, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"type": typ, "payload": payload})
	require.NoError(t, err)
	return raw
}

func (tr *testRouter) join(t *testing.T, sock *fakeSocket, roomID, userName string) {
	t.Helper()
	require.NoError(t, tr.HandleMessage(sock, frame(t, TypeJoin, JoinPayload{RoomID: roomID, UserName: userName})))
}

// assertConsistent checks that registry and directory agree on membership and
// that names are unique per room.
func (tr *testRouter) assertConsistent(t *testing.T) {
	t.Helper()

	for _, room := range tr.directory.Stats() {
		require.NotZero(t, room.Members, "empty room %q is still listed", room.ID)
		names := map[string]bool{}
		for _, id := range tr.directory.Members(room.ID) {
			conn, ok := tr.registry.Find(id)
			require.True(t, ok, "member %s of %q is not registered", id, room.ID)
			require.Equal(t, room.ID, conn.RoomID)
			require.False(t, names[conn.UserName], "duplicate name %q in %q", conn.UserName, room.ID)
			names[conn.UserName] = true
		}
	}

	for _, conn := range tr.registry.Snapshot() {
		require.Contains(t, tr.directory.Members(conn.RoomID), conn.ID)
	}
}
