package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Event names exchanged with clients.
const (
	EventChatMessage = "chat message"
	EventJoin        = "join"
	EventJoined      = "joined"
	EventName        = "name"
	EventHistory     = "history"
	EventError       = "error"
)

// Message is a chat message stored in a room log. It is immutable once
// appended; ID, RoomID and Timestamp are assigned by the room.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Anonymous reports whether the message has no author.
func (m Message) Anonymous() bool {
	return m.AuthorID == ""
}

// Event is the JSON envelope of every frame on the wire.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ChatPayload is the client-to-server body of a "chat message" event.
// Pointers distinguish an absent field from an empty one.
type ChatPayload struct {
	AuthorID *string `json:"authorId"`
	Text     *string `json:"text"`
}

// JoinPayload is the body of a "join" event.
type JoinPayload struct {
	Room string `json:"room"`
}

// JoinedPayload confirms a join to the connection that made it.
type JoinedPayload struct {
	Room         string `json:"room"`
	ConnectionID string `json:"connectionId"`
}

// NamePayload is the body of a "name" event.
type NamePayload struct {
	Name string `json:"name"`
}

// HistoryPayload carries a room log.
type HistoryPayload struct {
	Room     string    `json:"room"`
	Messages []Message `json:"messages"`
}

// ErrorPayload notifies a client that its last frame was rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}

// EncodeEvent marshals data into an envelope named name.
func EncodeEvent(name string, data any) ([]byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %q payload: %w", name, err)
	}
	return json.Marshal(Event{Name: name, Data: body})
}

// DecodeEvent parses an inbound frame. A bare object without an "event"
// field is accepted as a chat message so that minimal clients can send
// {"authorId": ..., "text": ...} directly.
func DecodeEvent(raw []byte) (Event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Event{}, fmt.Errorf("%w: frame is not a JSON object", ErrInvalidMessage)
	}

	var ev Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	if ev.Name == "" {
		return Event{Name: EventChatMessage, Data: json.RawMessage(trimmed)}, nil
	}
	return ev, nil
}

// DecodeChatPayload validates the body of a chat message event.
func DecodeChatPayload(data json.RawMessage) (ChatPayload, error) {
	var p ChatPayload
	if len(data) == 0 {
		return p, fmt.Errorf("%w: missing data", ErrInvalidMessage)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if p.Text == nil {
		return p, fmt.Errorf("%w: text is required", ErrInvalidMessage)
	}
	return p, nil
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}
