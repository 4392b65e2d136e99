// Package server coordinates client registration and connection cleanup for
// the roomchat WebSocket system via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// Hub tracks every live WebSocket client, joined or not, and owns the
// goroutines that pump frames for them. Room state is delegated to the chat
// router: when a client goes away the hub runs the router's cleanup.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	router     *chat.Router
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	logger     *slog.Logger

	totalConnections atomic.Int64
}

// NewHub creates a Hub that hands inbound frames to router.
func NewHub(router *chat.Router, logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		router:     router,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "hub")),
	}
}

// Register hands a freshly upgraded client to the hub, which starts its pumps.
// It returns false if the hub has already shut down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client. After shutdown the removal runs inline.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		h.removeClient(client)
	}
}

// ClientCount returns the number of live sockets, joined or not.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// TotalConnections returns the number of sockets accepted since start.
func (h *Hub) TotalConnections() int64 {
	return h.totalConnections.Load()
}

// Run starts the hub's main event loop. It should be called in a separate
// goroutine and returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.logger.Warn("received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	total := h.totalConnections.Add(1)
	client.logger.Info("connection established",
		slog.Int("clients", clientCount),
		slog.Int64("totalConnections", total))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// removeClient drops the client from the hub, tears down its room
// membership, and stops its write pump. Safe to call more than once.
func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.router.Cleanup(client.ID())
	client.closeSend()

	if ok {
		client.logger.Info("client unregistered", slog.Int("clients", clientCount))
	}
}

// shutdownClients closes all active client connections. The read pumps then
// fail and unregister their clients.
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			client.logger.Warn("error closing client connection", slog.Any("error", err))
		}
	}

	h.logger.Info("closed client connections", slog.Int("count", len(clients)))
}

// Shutdown stops the hub and waits for every client goroutine to finish, or
// for ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()

	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-ctx.Done():
		h.logger.Warn("hub shutdown timed out, some goroutines may still be running")
		return ctx.Err()
	}
}
