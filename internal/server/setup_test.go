package server_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/server"
)

// startTestServer runs a Server behind httptest. configure may adjust the
// defaults before the server is built.
func startTestServer(t *testing.T, configure func(cfg *server.Config)) (*server.Server, *httptest.Server, *test.Hook) {
	t.Helper()

	cfg := server.NewConfig()
	if configure != nil {
		configure(cfg)
	}

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	srv := server.New(cfg, log)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, srv.Shutdown(ctx))
		ts.Close()
	})

	return srv, ts, hook
}
