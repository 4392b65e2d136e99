// Package server implements the HTTP and WebSocket transport for roomchat.
//
// The implementation is organized into specialized files for configuration,
// origin checks, hub management, clients, routing, and HTTP handlers. Room
// state lives in package chat; this package only moves frames between sockets
// and the chat router.
package server
