// Package chat implements the room-based broadcast core of chatrelay.
//
// The package is transport agnostic. A Connection wraps an opaque Transport
// handle owned by the transport layer; the Registry tracks live connections,
// Rooms holds per-room membership and the append-only message log, the
// Dispatcher fans messages out to room members, and the Manager drives each
// connection through its Connected, Joined and Disconnected states.
//
// Rooms are independent: every room carries its own lock and no operation
// takes a lock spanning more than one room.
package chat
