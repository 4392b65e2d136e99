// Package server wires HTTP handlers into a gorilla/mux router for the
// roomchat application via routing helpers.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures and returns a router with all application routes.
// It sets up handlers for health check, WebSocket endpoint, stats, and test page.
func SetupRoutes(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", HealthHandler)
	r.HandleFunc("/ws", s.WebSocketHandler)
	r.HandleFunc("/stats", s.StatsHandler).Methods(http.MethodGet)
	r.HandleFunc("/test", TestPageHandler).Methods(http.MethodGet)
	return r
}
