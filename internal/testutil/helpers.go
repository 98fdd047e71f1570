// Package testutil provides common utilities and helper functions for testing
// the chatrelay server.
//
// It wraps the WebSocket dialing, event framing and HTTP request boilerplate
// shared by the server and command tests.
package testutil

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

// Origin is the Origin header sent by ConnectWebSocket; it matches the
// default allowed origin.
const Origin = "http://localhost:8080"

// DefaultTimeout bounds every blocking read in these helpers.
const DefaultTimeout = 2 * time.Second

// WebSocketURL turns an httptest server URL into its /ws endpoint. query
// is appended verbatim when non-empty, e.g. "room=lobby".
func WebSocketURL(serverURL, query string) string {
	u := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

// ConnectWebSocket creates a WebSocket connection to url with the given
// Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// MustConnect dials url with the default Origin and registers cleanup. It
// consumes the joined confirmation and returns the assigned connection id.
func MustConnect(t *testing.T, url string) (*websocket.Conn, string) {
	t.Helper()

	conn, _, err := ConnectWebSocket(url, Origin)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ev := ReadEvent(t, conn)
	require.Equal(t, chat.EventJoined, ev.Name)

	var joined chat.JoinedPayload
	require.NoError(t, json.Unmarshal(ev.Data, &joined))
	return conn, joined.ConnectionID
}

// SendEvent writes one event frame.
func SendEvent(t *testing.T, conn *websocket.Conn, name string, data any) {
	t.Helper()

	frame, err := chat.EncodeEvent(name, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// SendChat sends a chat message event with the given author and text.
func SendChat(t *testing.T, conn *websocket.Conn, author, text string) {
	t.Helper()
	SendEvent(t, conn, chat.EventChatMessage, map[string]string{"authorId": author, "text": text})
}

// ReadEvent reads the next frame and decodes it as an event.
func ReadEvent(t *testing.T, conn *websocket.Conn) chat.Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(DefaultTimeout)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev chat.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

// ReadChat reads the next frame and requires it to be a chat message.
func ReadChat(t *testing.T, conn *websocket.Conn) chat.Message {
	t.Helper()

	ev := ReadEvent(t, conn)
	require.Equal(t, chat.EventChatMessage, ev.Name)

	var msg chat.Message
	require.NoError(t, json.Unmarshal(ev.Data, &msg))
	return msg
}

// ExpectNoEvent fails if a frame arrives within wait.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, raw, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", raw)
}

// ExpectClosed fails unless the server closes conn within DefaultTimeout.
// Pending frames are drained.
func ExpectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(DefaultTimeout)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatalf("connection was not closed: %v", err)
		}
		return
	}
}

// Eventually polls cond until it holds or DefaultTimeout passes.
func Eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, DefaultTimeout, 10*time.Millisecond, msg)
}

// MakeRequest creates and executes an HTTP request, returning the response.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
