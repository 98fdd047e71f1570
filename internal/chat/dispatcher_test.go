package chat_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

type dispatchFixture struct {
	rooms      *chat.Rooms
	registry   *chat.Registry
	transports map[string]*fakeTransport
	ids        []string
}

func newDispatchFixture(t *testing.T, members int) *dispatchFixture {
	t.Helper()
	rooms := chat.NewRooms(0)
	f := &dispatchFixture{
		rooms:      rooms,
		registry:   chat.NewRegistry(rooms),
		transports: make(map[string]*fakeTransport),
	}
	for i := 0; i < members; i++ {
		tr := &fakeTransport{}
		id := f.registry.Register(chat.NewConnection(tr, "127.0.0.1:0"))
		rooms.Join("default", id)
		f.transports[id] = tr
		f.ids = append(f.ids, id)
	}
	return f
}

func TestPublishIncludesSenderByDefault(t *testing.T) {
	log, _ := nullLogger()
	f := newDispatchFixture(t, 3)
	d := chat.NewDispatcher(f.registry, f.rooms, false, log)

	stored, res, err := d.Publish("default", chat.Message{AuthorID: "alice", Text: "hi"}, f.ids[0])
	require.NoError(t, err)

	assert.Equal(t, chat.DispatchResult{Recipients: 3, Delivered: 3}, res)
	for _, id := range f.ids {
		msgs := f.transports[id].messages(t)
		require.Len(t, msgs, 1)
		assert.Equal(t, stored.ID, msgs[0].ID)
		assert.Equal(t, "alice", msgs[0].AuthorID)
		assert.Equal(t, "hi", msgs[0].Text)
	}
}

func TestPublishExcludesSender(t *testing.T) {
	log, _ := nullLogger()
	f := newDispatchFixture(t, 3)
	d := chat.NewDispatcher(f.registry, f.rooms, true, log)

	_, res, err := d.Publish("default", chat.Message{Text: "hi"}, f.ids[0])
	require.NoError(t, err)

	assert.Equal(t, chat.DispatchResult{Recipients: 2, Delivered: 2}, res)
	assert.Empty(t, f.transports[f.ids[0]].messages(t))
	assert.Len(t, f.transports[f.ids[1]].messages(t), 1)
	assert.Len(t, f.transports[f.ids[2]].messages(t), 1)
}

func TestPublishIsolatesFailedRecipient(t *testing.T) {
	log, hook := nullLogger()
	f := newDispatchFixture(t, 4)
	d := chat.NewDispatcher(f.registry, f.rooms, true, log)

	broken := f.ids[2]
	f.transports[broken].setFail(true)

	_, res, err := d.Publish("default", chat.Message{Text: "hi"}, f.ids[0])
	require.NoError(t, err)

	assert.Equal(t, 3, res.Recipients)
	assert.Equal(t, 2, res.Delivered)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, f.transports[f.ids[1]].messages(t), 1)
	assert.Len(t, f.transports[f.ids[3]].messages(t), 1)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["conn"] == broken {
			warned = true
		}
	}
	assert.True(t, warned, "failed send should be logged with the connection id")
}

func TestPublishCountsRecipientThatAlreadyLeft(t *testing.T) {
	log, _ := nullLogger()
	f := newDispatchFixture(t, 2)
	d := chat.NewDispatcher(f.registry, f.rooms, false, log)

	// Registered members only; a stale id in the room is skipped.
	f.rooms.Join("default", "ghost")

	_, res, err := d.Publish("default", chat.Message{Text: "hi"}, f.ids[0])
	require.NoError(t, err)
	assert.Equal(t, chat.DispatchResult{Recipients: 3, Delivered: 2, Failed: 1}, res)
}

func TestPublishToMissingRoom(t *testing.T) {
	log, _ := nullLogger()
	f := newDispatchFixture(t, 0)
	d := chat.NewDispatcher(f.registry, f.rooms, false, log)

	_, _, err := d.Publish("nowhere", chat.Message{Text: "hi"}, "")
	assert.ErrorIs(t, err, chat.ErrRoomNotFound)
}
