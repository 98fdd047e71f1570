package chat

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of a connection.
type State int

const (
	StateConnected State = iota
	StateJoined
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transport is the handle the transport layer hands to the core. Send must
// not block: a recipient that cannot accept the payload right away returns
// an error.
type Transport interface {
	Send(payload []byte) error
	Close() error
}

// Connection is one live client connection. Its room and state only change
// through the Registry and the Manager.
type Connection struct {
	id         string
	remoteAddr string
	transport  Transport

	mu     sync.RWMutex
	roomID string
	name   string
	state  State

	disconnectOnce sync.Once
}

// NewConnection wraps a transport handle. The id is assigned on Register.
func NewConnection(t Transport, remoteAddr string) *Connection {
	return &Connection{
		transport:  t,
		remoteAddr: remoteAddr,
		state:      StateConnected,
	}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) RemoteAddr() string { return c.remoteAddr }

// RoomID returns the room the connection is in, or "" before it has joined.
func (c *Connection) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

// Name returns the display name used for messages sent without an author.
func (c *Connection) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Send hands payload to the transport.
func (c *Connection) Send(payload []byte) error {
	if c.State() == StateDisconnected {
		return ErrConnectionLost
	}
	if err := c.transport.Send(payload); err != nil {
		return fmt.Errorf("%w: connection %s: %v", ErrSendFailure, c.id, err)
	}
	return nil
}

func (c *Connection) sendEvent(name string, data any) error {
	payload, err := EncodeEvent(name, data)
	if err != nil {
		return err
	}
	return c.Send(payload)
}
