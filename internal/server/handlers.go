// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, statistics, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// StatsResponse is the body served by StatsHandler.
type StatsResponse struct {
	Connections      int              `json:"connections"`
	Sockets          int              `json:"sockets"`
	TotalConnections int64            `json:"totalConnections"`
	Rooms            []chat.RoomStats `json:"rooms"`
}

// WebSocketHandler handles WebSocket upgrade requests. It validates that the
// request uses the GET method, upgrades the HTTP connection, and hands the new
// client to the hub, which starts its read/write pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", slog.String("remote", r.RemoteAddr), slog.Any("error", err))
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg.MaxMessageSize)
	if !s.hub.Register(client) {
		client.logger.Warn("hub is shut down; rejecting connection")
		_ = conn.Close()
	}
}

// StatsHandler reports connection and room counts as JSON.
func (s *Server) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	stats := s.router.Stats()
	resp := StatsResponse{
		Connections:      stats.Connections,
		Sockets:          s.hub.ClientCount(),
		TotalConnections: s.hub.TotalConnections(),
		Rooms:            stats.Rooms,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("error writing stats response", slog.Any("error", err))
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "roomchat server is running!")
}

// TestPageHandler serves an HTML page for joining a room and chatting over the
// WebSocket endpoint by hand.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		slog.Warn("error writing HTML response", slog.Any("error", err))
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>roomchat WebSocket Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 200px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        .system { color: gray; font-style: italic; }
        .error { color: #721c24; }
    </style>
</head>
<body>
    <h1>roomchat WebSocket Test</h1>

    <div>
        <input type="text" id="roomInput" placeholder="Room" value="lobby">
        <input type="text" id="nameInput" placeholder="Your name">
        <button onclick="join()">Join</button>
    </div>
    <div style="margin-top: 10px">
        <input type="text" id="messageInput" placeholder="Type a message...">
        <button onclick="sendChat()">Send</button>
    </div>

    <div id="messages"></div>

    <script>
        const messagesDiv = document.getElementById('messages');
        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');

        function addLine(text, cls) {
            const el = document.createElement('div');
            el.className = cls || '';
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        ws.onopen = () => addLine('Connected', 'system');
        ws.onclose = () => addLine('Connection closed', 'system');
        ws.onmessage = (event) => {
            const msg = JSON.parse(event.data);
            if (msg.type === 'chat') {
                addLine(msg.sender + ': ' + msg.message);
            } else {
                addLine(msg.message, msg.type);
            }
        };

        function join() {
            ws.send(JSON.stringify({
                type: 'join',
                payload: {
                    roomId: document.getElementById('roomInput').value,
                    userName: document.getElementById('nameInput').value
                }
            }));
        }

        function sendChat() {
            const input = document.getElementById('messageInput');
            ws.send(JSON.stringify({type: 'chat', payload: {message: input.value}}));
            input.value = '';
        }

        document.getElementById('messageInput').addEventListener('keypress', (e) => {
            if (e.key === 'Enter') sendChat();
        });
    </script>
</body>
</html>`
