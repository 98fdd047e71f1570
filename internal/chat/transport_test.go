package chat_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

var errBufferFull = errors.New("send buffer full")

// fakeTransport records every frame it is handed.
type fakeTransport struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closes int
}

func (f *fakeTransport) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errBufferFull
	}
	f.frames = append(f.frames, append([]byte(nil), payload...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeTransport) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeTransport) events(t *testing.T, name string) []chat.Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var events []chat.Event
	for _, frame := range f.frames {
		var ev chat.Event
		require.NoError(t, json.Unmarshal(frame, &ev))
		if name == "" || ev.Name == name {
			events = append(events, ev)
		}
	}
	return events
}

func (f *fakeTransport) messages(t *testing.T) []chat.Message {
	t.Helper()
	var msgs []chat.Message
	for _, ev := range f.events(t, chat.EventChatMessage) {
		var m chat.Message
		require.NoError(t, json.Unmarshal(ev.Data, &m))
		msgs = append(msgs, m)
	}
	return msgs
}

func strPtr(s string) *string { return &s }

func nullLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}
