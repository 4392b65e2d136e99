// Package server constructs and starts the roomchat HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartServer starts the HTTP server and begins listening for connections.
// It returns http.ErrServerClosed after a graceful shutdown.
func StartServer(server *http.Server, logger *slog.Logger) error {
	logger.Info("server listening", slog.String("addr", server.Addr))
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting
// active requests, waiting until they finish or ctx expires.
func ShutdownServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	logger.Info("shutting down HTTP server")

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", slog.Any("error", err))
		return err
	}

	logger.Info("HTTP server shutdown completed")
	return nil
}
