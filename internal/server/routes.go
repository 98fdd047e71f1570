// Package server wires HTTP handlers into a router for the chatrelay
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures and returns a router with all application routes:
// health checks, the WebSocket endpoint, room inspection and the test page.
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", HealthHandler)
	r.HandleFunc("/health", HealthHandler)
	r.HandleFunc("/ws", s.WebSocketHandler)
	r.HandleFunc("/test", TestPageHandler(s.log)).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.RoomsHandler).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{id}", s.RoomHandler).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{id}/messages", s.RoomMessagesHandler).Methods(http.MethodGet)
	return r
}
