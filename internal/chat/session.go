package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// DefaultRoom is the room connections land in when none is requested.
const DefaultRoom = "default"

// Options configures a Manager.
type Options struct {
	// DefaultRoom receives connections that do not name a room.
	DefaultRoom string
	// ExcludeSender stops a message from being echoed to its author.
	ExcludeSender bool
	// HistoryLimit caps each room log; zero keeps everything.
	HistoryLimit int
	// ReplayHistory sends the room log to a connection when it joins.
	ReplayHistory bool
}

// ConnectOptions describes a newly accepted connection.
type ConnectOptions struct {
	RoomID     string
	Name       string
	RemoteAddr string
}

// Manager drives the session lifecycle of every connection:
// Connected -> Joined -> Disconnected.
type Manager struct {
	opts       Options
	rooms      *Rooms
	registry   *Registry
	dispatcher *Dispatcher
	log        logrus.FieldLogger

	shuttingDown atomic.Bool
}

// NewManager wires a registry, room store and dispatcher together.
func NewManager(opts Options, log logrus.FieldLogger) *Manager {
	if strings.TrimSpace(opts.DefaultRoom) == "" {
		opts.DefaultRoom = DefaultRoom
	}

	rooms := NewRooms(opts.HistoryLimit)
	registry := NewRegistry(rooms)
	m := &Manager{
		opts:       opts,
		rooms:      rooms,
		registry:   registry,
		dispatcher: NewDispatcher(registry, rooms, opts.ExcludeSender, log),
		log:        log,
	}
	m.dispatcher.onSendFailure = func(c *Connection, err error) {
		m.Disconnect(c.ID(), err)
	}
	return m
}

func (m *Manager) Rooms() *Rooms { return m.rooms }

func (m *Manager) Registry() *Registry { return m.registry }

func (m *Manager) DefaultRoom() string { return m.opts.DefaultRoom }

// Connect registers a transport and joins it to the requested room, or to
// the default room since clients are not required to send a join event.
func (m *Manager) Connect(t Transport, opts ConnectOptions) (*Connection, error) {
	if m.shuttingDown.Load() {
		return nil, ErrServerShutdown
	}

	c := NewConnection(t, opts.RemoteAddr)
	c.name = strings.TrimSpace(opts.Name)
	id := m.registry.Register(c)

	m.log.WithFields(logrus.Fields{
		"conn":    id,
		"remote":  opts.RemoteAddr,
		"clients": m.registry.Count(),
	}).Info("Client registered")

	if err := m.Join(id, opts.RoomID); err != nil {
		m.Disconnect(id, err)
		return nil, err
	}
	return c, nil
}

// Join moves the connection into roomID. A connection already in another
// room leaves it first; joining the current room is a no-op.
func (m *Manager) Join(connID, roomID string) error {
	c, ok := m.registry.Lookup(connID)
	if !ok {
		return fmt.Errorf("join %s: %w", connID, ErrUnknownConnection)
	}

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		roomID = m.opts.DefaultRoom
	}

	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("join %s: %w", connID, ErrConnectionLost)
	}
	if c.state == StateJoined && c.roomID == roomID {
		c.mu.Unlock()
		return nil
	}

	previous := c.roomID
	if previous != "" {
		m.rooms.Leave(previous, c.id)
	}
	m.rooms.Join(roomID, c.id)
	c.roomID = roomID
	c.state = StateJoined
	c.mu.Unlock()

	fields := logrus.Fields{"conn": connID, "room": roomID}
	if previous != "" {
		fields["from"] = previous
	}
	m.log.WithFields(fields).Info("Client joined room")

	if err := c.sendEvent(EventJoined, JoinedPayload{Room: roomID, ConnectionID: connID}); err != nil {
		m.log.WithField("conn", connID).WithError(err).Debug("Could not confirm join")
	}
	if m.opts.ReplayHistory {
		m.sendHistory(c, roomID)
	}
	return nil
}

// SetName sets the display name used when a message carries no author.
func (m *Manager) SetName(connID, name string) error {
	c, ok := m.registry.Lookup(connID)
	if !ok {
		return fmt.Errorf("set name %s: %w", connID, ErrUnknownConnection)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisconnected {
		return fmt.Errorf("set name %s: %w", connID, ErrConnectionLost)
	}
	c.name = strings.TrimSpace(name)
	return nil
}

// Send publishes a chat message from connID to its current room. When the
// payload has no authorId the connection's display name is used.
func (m *Manager) Send(connID string, p ChatPayload) (Message, DispatchResult, error) {
	c, ok := m.registry.Lookup(connID)
	if !ok {
		return Message{}, DispatchResult{}, fmt.Errorf("send %s: %w", connID, ErrUnknownConnection)
	}
	if p.Text == nil {
		return Message{}, DispatchResult{}, fmt.Errorf("%w: text is required", ErrInvalidMessage)
	}

	c.mu.RLock()
	state, roomID, author := c.state, c.roomID, c.name
	c.mu.RUnlock()

	if state == StateDisconnected {
		return Message{}, DispatchResult{}, fmt.Errorf("send %s: %w", connID, ErrConnectionLost)
	}
	if state != StateJoined {
		return Message{}, DispatchResult{}, fmt.Errorf("send %s: %w", connID, ErrRoomNotFound)
	}
	if p.AuthorID != nil {
		author = *p.AuthorID
	}

	return m.dispatcher.Publish(roomID, Message{AuthorID: author, Text: *p.Text}, connID)
}

// HandleEvent decodes and applies one inbound frame. Rejected frames are
// reported back to the sender with an error event.
func (m *Manager) HandleEvent(connID string, raw []byte) error {
	err := m.handleEvent(connID, raw)
	if err != nil && errors.Is(err, ErrInvalidMessage) {
		if c, ok := m.registry.Lookup(connID); ok {
			_ = c.sendEvent(EventError, ErrorPayload{Message: err.Error()})
		}
	}
	return err
}

func (m *Manager) handleEvent(connID string, raw []byte) error {
	ev, err := DecodeEvent(raw)
	if err != nil {
		return err
	}

	switch ev.Name {
	case EventChatMessage:
		p, err := DecodeChatPayload(ev.Data)
		if err != nil {
			return err
		}
		_, _, err = m.Send(connID, p)
		return err

	case EventJoin:
		var p JoinPayload
		if err := decodeData(ev.Data, &p); err != nil {
			return err
		}
		return m.Join(connID, p.Room)

	case EventName:
		var p NamePayload
		if err := decodeData(ev.Data, &p); err != nil {
			return err
		}
		return m.SetName(connID, p.Name)

	case EventHistory:
		c, ok := m.registry.Lookup(connID)
		if !ok {
			return fmt.Errorf("history %s: %w", connID, ErrUnknownConnection)
		}
		m.sendHistory(c, c.RoomID())
		return nil

	default:
		return fmt.Errorf("%w: unknown event %q", ErrInvalidMessage, ev.Name)
	}
}

func (m *Manager) sendHistory(c *Connection, roomID string) {
	messages, _ := m.rooms.History(roomID)
	if messages == nil {
		messages = []Message{}
	}
	if err := c.sendEvent(EventHistory, HistoryPayload{Room: roomID, Messages: messages}); err != nil {
		m.log.WithField("conn", c.ID()).WithError(err).Debug("Could not send history")
	}
}

// Disconnect tears the connection down: it leaves its room, is unregistered
// and its transport is closed. Only the first call for a connection has any
// effect.
func (m *Manager) Disconnect(connID string, reason error) {
	c, ok := m.registry.Lookup(connID)
	if !ok {
		return
	}

	c.disconnectOnce.Do(func() {
		c.mu.Lock()
		roomID := c.roomID
		c.state = StateDisconnected
		c.mu.Unlock()

		m.registry.Unregister(connID)
		if err := c.transport.Close(); err != nil {
			m.log.WithField("conn", connID).WithError(err).Debug("Error closing transport")
		}

		entry := m.log.WithFields(logrus.Fields{
			"conn":    connID,
			"remote":  c.remoteAddr,
			"room":    roomID,
			"clients": m.registry.Count(),
		})
		if reason != nil {
			entry = entry.WithField("reason", reason.Error())
		}
		entry.Info("Client unregistered")
	})
}

// Shutdown disconnects every live connection. Connect fails with
// ErrServerShutdown once Shutdown has been called.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shuttingDown.Store(true)
	conns := m.registry.Snapshot()
	m.log.WithField("clients", len(conns)).Info("Shutting down all client connections...")

	for _, c := range conns {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Disconnect(c.ID(), ErrServerShutdown)
	}

	m.log.Infof("Closed %d client connections", len(conns))
	return nil
}
