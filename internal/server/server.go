package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

// Server owns the HTTP listener, the WebSocket upgrader and the chat
// session manager shared by every connection.
type Server struct {
	cfg        Config
	log        logrus.FieldLogger
	sessions   *chat.Manager
	origins    *originPolicy
	upgrader   websocket.Upgrader
	httpServer *http.Server

	// pumps tracks the read and write goroutines of every client.
	pumps sync.WaitGroup
}

// New builds a Server from cfg. A nil cfg uses the defaults.
func New(cfg *Config, log logrus.FieldLogger) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}

	s := &Server{
		cfg:      *cfg,
		log:      log,
		sessions: chat.NewManager(cfg.chatOptions(), log),
		origins:  newOriginPolicy(cfg.AllowedOrigins, log),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.check,
	}
	s.httpServer = CreateServer(cfg.Port, s.SetupRoutes())
	return s
}

// Sessions returns the chat session manager.
func (s *Server) Sessions() *chat.Manager {
	return s.sessions
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server and blocks until it stops. It
// returns nil after a graceful shutdown.
func (s *Server) ListenAndServe() error {
	err := StartServer(s.httpServer, s.log)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections, disconnects every client and waits
// for their pumps to exit or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ShutdownServer(gctx, s.httpServer, s.log)
	})
	g.Go(func() error {
		return s.sessions.Shutdown(gctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.pumps.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("All client connections closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) startPumps(c *Client) {
	s.pumps.Add(2)
	go func() {
		defer s.pumps.Done()
		c.writePump()
	}()
	go func() {
		defer s.pumps.Done()
		c.readPump()
	}()
}
