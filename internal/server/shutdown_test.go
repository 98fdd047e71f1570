package server_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/Tyrowin/chatrelay/internal/server"
	"github.com/Tyrowin/chatrelay/internal/testutil"
)

type discardTransport struct{}

func (discardTransport) Send([]byte) error { return nil }
func (discardTransport) Close() error      { return nil }

func TestGracefulShutdownWithClients(t *testing.T) {
	log, _ := test.NewNullLogger()
	srv := server.New(server.NewConfig(), log)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := testutil.WebSocketURL(ts.URL, "")
	const numClients = 5
	clients := make([]*websocket.Conn, numClients)
	for i := range clients {
		clients[i], _ = testutil.MustConnect(t, url)
	}
	require.Equal(t, numClients, srv.Sessions().Registry().Count())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	for _, conn := range clients {
		testutil.ExpectClosed(t, conn)
	}
	assert.Zero(t, srv.Sessions().Registry().Count())
	assert.Zero(t, srv.Sessions().Rooms().Count())

	_, err := srv.Sessions().Connect(discardTransport{}, chat.ConnectOptions{})
	assert.True(t, errors.Is(err, chat.ErrServerShutdown))
}

func TestShutdownWithoutClients(t *testing.T) {
	log, _ := test.NewNullLogger()
	srv := server.New(nil, log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}

func TestListenAndServeReturnsAfterShutdown(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := server.NewConfig()
	cfg.Port = "127.0.0.1:0"
	srv := server.New(cfg, log)

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not return")
	}
}
