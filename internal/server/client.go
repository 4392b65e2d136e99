// Package server manages individual WebSocket clients, handling read/write
// pumps and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	sendBufferSize = 256
)

// Client represents a WebSocket client connection. It satisfies chat.Socket:
// the chat router enqueues frames with Send and the write pump delivers them.
type Client struct {
	id             uuid.UUID
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	maxMessageSize int64
	logger         *slog.Logger

	mu     sync.Mutex
	closed bool
	broken atomic.Bool
}

// NewClient creates a new Client instance with the provided WebSocket connection,
// hub reference, and client address. Each client gets a fresh connection id.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, maxMessageSize int64) *Client {
	if conn != nil {
		conn.SetReadLimit(maxMessageSize)
	}
	id := uuid.New()

	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		hub:            hub,
		addr:           addr,
		maxMessageSize: maxMessageSize,
		logger:         hub.logger.With(slog.String("connID", id.String()), slog.String("remote", addr)),
	}
}

// ID returns the connection id assigned at creation.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Open reports whether the client can still accept frames.
func (c *Client) Open() bool {
	if c.broken.Load() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Send enqueues a frame for the write pump without blocking. It returns false
// if the client is closed or its buffer is full.
func (c *Client) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// GetSendChan returns the client's send channel for reading outgoing messages.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// closeSend marks the client closed and closes its send channel, which makes
// the write pump send a close frame and exit. Safe to call more than once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// markBroken flags the transport as unusable so the reaper can collect the
// connection even if the read pump has not noticed yet.
func (c *Client) markBroken() {
	c.broken.Store(true)
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("failed to set initial read deadline", slog.Any("error", err))
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Warn("failed to set read deadline in pong handler", slog.Any("error", err))
		}
		return nil
	})
}

// handleReadError logs the read error according to its kind. Every read error
// ends the read loop.
func (c *Client) handleReadError(err error) {
	if errors.Is(err, websocket.ErrReadLimit) {
		c.logger.Warn("message exceeded maximum size", slog.Int64("maxMessageSize", c.maxMessageSize))
		return
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		c.logger.Info("client disconnected", slog.Any("reason", err))
		return
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.logger.Info("client connection closed", slog.Any("reason", err))
		return
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		c.logger.Warn("unexpected WebSocket error", slog.Any("error", err))
		return
	}

	c.logger.Warn("WebSocket read error", slog.Any("error", err))
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("error closing connection in readPump", slog.Any("error", err))
		}
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		// Validation and decode failures are handled (and logged) by the
		// router; the connection stays open either way.
		_ = c.hub.router.HandleMessage(c, rawMessage)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("error closing connection in writePump", slog.Any("error", err))
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("failed to set write deadline", slog.Any("error", err))
		c.markBroken()
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if !c.writeTextMessage(message) {
		c.markBroken()
		return false
	}
	return c.writeQueuedMessages()
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("error writing close message", slog.Any("error", err))
	}
	return false
}

// writeTextMessage writes one envelope as its own text frame.
func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("error writing message", slog.Any("error", err))
		}
		return false
	}
	return true
}

// writeQueuedMessages flushes frames that queued up while the previous one
// was being written. Envelopes are never batched into a single frame.
func (c *Client) writeQueuedMessages() bool {
	n := len(c.send)
	for i := 0; i < n; i++ {
		message, ok := <-c.send
		if !ok {
			return c.writeCloseMessage()
		}
		if !c.writeTextMessage(message) {
			c.markBroken()
			return false
		}
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("failed to set write deadline for ping", slog.Any("error", err))
		c.markBroken()
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn("error writing ping message", slog.Any("error", err))
		c.markBroken()
		return false
	}
	return true
}
