package chat

import "errors"

var (
	// ErrConnectionLost is returned for operations on a connection whose
	// transport has closed. It triggers cleanup and is never surfaced to
	// other users.
	ErrConnectionLost = errors.New("connection lost")

	// ErrSendFailure reports that a single recipient could not be reached
	// during dispatch.
	ErrSendFailure = errors.New("send failure")

	// ErrInvalidMessage reports a malformed inbound payload.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrRoomNotFound is returned when appending to a room with no members.
	ErrRoomNotFound = errors.New("room not found")

	// ErrServerShutdown is the disconnect reason used when the server stops.
	ErrServerShutdown = errors.New("server shutdown")

	// ErrUnknownConnection is returned when a connection id is not registered.
	ErrUnknownConnection = errors.New("unknown connection")
)
