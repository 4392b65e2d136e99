// Package server assembles the chat core and the WebSocket transport into a
// runnable application.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// Server owns the chat state, the hub of live sockets, and the reaper.
type Server struct {
	cfg      *Config
	registry *chat.Registry
	rooms    *chat.Directory
	router   *chat.Router
	reaper   *chat.Reaper
	hub      *Hub
	origins  *originPolicy
	upgrader websocket.Upgrader
	logger   *slog.Logger

	reaperCancel context.CancelFunc
	reaperDone   chan struct{}
	startOnce    sync.Once
}

// New builds a Server from cfg. Nothing runs until Start is called.
func New(cfg *Config, logger *slog.Logger) *Server {
	sanitized := sanitizeConfig(*cfg)
	cfg = &sanitized

	registry := chat.NewRegistry(logger)
	rooms := chat.NewDirectory(logger)
	router := chat.NewRouter(registry, rooms, logger)

	s := &Server{
		cfg:        cfg,
		registry:   registry,
		rooms:      rooms,
		router:     router,
		reaper:     chat.NewReaper(registry, router, cfg.ReaperInterval, cfg.StatsInterval, logger),
		hub:        NewHub(router, logger),
		origins:    newOriginPolicy(cfg.AllowedOrigins, logger.With(slog.String("component", "origin"))),
		logger:     logger.With(slog.String("component", "server")),
		reaperDone: make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

// Start launches the hub loop and the reaper. It is idempotent.
func (s *Server) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.hub.Run()
		s.logger.Info("hub started and ready to manage WebSocket connections")

		reaperCtx, cancel := context.WithCancel(ctx)
		s.reaperCancel = cancel
		go func() {
			defer close(s.reaperDone)
			if err := s.reaper.Run(reaperCtx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("reaper stopped with error", slog.Any("error", err))
			}
		}()
	})
}

// Handler returns the HTTP routes for this server.
func (s *Server) Handler() http.Handler {
	return SetupRoutes(s)
}

// Hub returns the hub for shutdown coordination.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router returns the chat router.
func (s *Server) Router() *chat.Router {
	return s.router
}

// Config returns the sanitized configuration in use.
func (s *Server) Config() *Config {
	return s.cfg
}

// Shutdown stops the reaper, closes every client, and waits for their pumps.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.reaperCancel != nil {
		s.reaperCancel()
		select {
		case <-s.reaperDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.hub.Shutdown(ctx)
}
