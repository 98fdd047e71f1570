package chat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

func TestRegistryRegisterAssignsUniqueIDs(t *testing.T) {
	reg := chat.NewRegistry(chat.NewRooms(0))

	a := chat.NewConnection(&fakeTransport{}, "127.0.0.1:1")
	b := chat.NewConnection(&fakeTransport{}, "127.0.0.1:2")

	idA := reg.Register(a)
	idB := reg.Register(b)

	assert.NotEmpty(t, idA)
	assert.NotEqual(t, idA, idB)
	assert.Equal(t, idA, a.ID())
	assert.Equal(t, 2, reg.Count())
	assert.Len(t, reg.Snapshot(), 2)

	got, ok := reg.Lookup(idA)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, chat.StateConnected, got.State())
}

func TestRegistryLookupUnknown(t *testing.T) {
	reg := chat.NewRegistry(chat.NewRooms(0))

	_, ok := reg.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryUnregisterLeavesRoom(t *testing.T) {
	log, _ := nullLogger()
	m := chat.NewManager(chat.Options{}, log)

	c, err := m.Connect(&fakeTransport{}, chat.ConnectOptions{RoomID: "lobby"})
	require.NoError(t, err)
	require.Equal(t, []string{c.ID()}, m.Rooms().Members("lobby"))

	m.Registry().Unregister(c.ID())

	_, ok := m.Registry().Lookup(c.ID())
	assert.False(t, ok)
	assert.Nil(t, m.Rooms().Members("lobby"))
	assert.Empty(t, c.RoomID())

	// Unknown ids are ignored.
	m.Registry().Unregister(c.ID())
	m.Registry().Unregister("missing")
}
