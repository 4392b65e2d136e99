package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/logging"
)

const testOriginURL = "http://localhost:8080"

// startTestServer runs a Server behind httptest and tears both down at the
// end of the test.
func startTestServer(t *testing.T, customize func(cfg *Config)) (*Server, *httptest.Server) {
	t.Helper()

	cfg := NewConfig()
	cfg.AllowedOrigins = []string{testOriginURL}
	if customize != nil {
		customize(cfg)
	}

	app := New(cfg, logging.Discard())
	app.Start(context.Background())
	ts := httptest.NewServer(app.Handler())

	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Shutdown(ctx)
	})
	return app, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	header.Set("Origin", testOriginURL)
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	conn, resp, err := dialer.Dial(wsURL(ts), header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": typ, "payload": payload}))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]string
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readTexts(t *testing.T, conn *websocket.Conn, n int) []string {
	t.Helper()
	texts := make([]string, 0, n)
	for range n {
		texts = append(texts, readEnvelope(t, conn)["message"])
	}
	return texts
}

func expectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "expected no message, got %s", data)

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	t.Fatalf("unexpected error while waiting for absence of message: %v", err)
}

func joinRoom(t *testing.T, conn *websocket.Conn, roomID, userName string) {
	t.Helper()
	sendEnvelope(t, conn, chat.TypeJoin, chat.JoinPayload{RoomID: roomID, UserName: userName})
}
