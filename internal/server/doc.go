// Package server implements the HTTP and WebSocket front end of chatrelay.
//
// The implementation is organized into specialized files for configuration,
// logging, clients, routing, and HTTP handlers. Room membership and message
// fan-out live in the chat package; this package adapts each WebSocket to a
// chat.Transport and drives it with a read and a write pump.
package server
