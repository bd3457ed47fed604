package ws

import (
	"io"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"Gun_Graph/transport"
)

// ServerConfig encapsulates the settings for the websocket server adapter.
type ServerConfig struct {
	// The address the websocket endpoint listens on.
	ListenAddr string

	// The logger to use. If not specified, a default noop logger is used.
	Logger *logrus.Entry
}

func (cfg *ServerConfig) validate() error {
	var err error
	if cfg.ListenAddr == "" {
		err = multierror.Append(err, xerrors.Errorf("listen address has not been provided"))
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return err
}

// Server is a network adapter that accepts websocket connections from
// peers on /gun and bridges text frames between them and the local node.
type Server struct {
	cfg ServerConfig
	app *fiber.App

	mu      sync.RWMutex
	handler transport.Handler
	conns   map[string]*serverConn
}

// serverConn serializes writes to a single peer connection.
type serverConn struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (c *serverConn) write(frame string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// NewServer creates a websocket server adapter with the specified config.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("ws server: config validation failed: %w", err)
	}

	srv := &Server{
		cfg:   cfg,
		conns: make(map[string]*serverConn),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use("/gun", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/gun", websocket.New(srv.handleConn))
	srv.app = app
	return srv, nil
}

// OnMessage implements transport.Adapter.
func (s *Server) OnMessage(handler transport.Handler) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

// Start implements transport.Adapter. The listener runs until Stop is
// called; a listener failure is logged rather than surfaced since the
// node keeps serving its other adapters.
func (s *Server) Start() error {
	go func() {
		if err := s.app.Listen(s.cfg.ListenAddr); err != nil {
			s.cfg.Logger.WithFields(logrus.Fields{
				"listen_addr": s.cfg.ListenAddr,
				"err":         err,
			}).Error("websocket listener terminated")
		}
	}()
	return nil
}

// Stop implements transport.Adapter.
func (s *Server) Stop() error {
	return s.app.Shutdown()
}

// Send implements transport.Adapter, broadcasting the frame to every
// connected peer. Individual peer failures are accumulated and do not
// prevent delivery to the remaining peers.
func (s *Server) Send(frame string) error {
	s.mu.RLock()
	conns := make(map[string]*serverConn, len(s.conns))
	for id, conn := range s.conns {
		conns[id] = conn
	}
	s.mu.RUnlock()

	var err error
	for id, conn := range conns {
		if writeErr := conn.write(frame); writeErr != nil {
			err = multierror.Append(err, xerrors.Errorf("send to peer %s: %w", id, writeErr))
		}
	}
	return err
}

func (s *Server) handleConn(conn *websocket.Conn) {
	id := uuid.NewString()
	s.mu.Lock()
	s.conns[id] = &serverConn{conn: conn}
	s.mu.Unlock()
	s.cfg.Logger.WithField("conn_id", id).Info("peer connected")

	defer func() {
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		s.cfg.Logger.WithField("conn_id", id).Info("peer disconnected")
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.mu.RLock()
		handler := s.handler
		s.mu.RUnlock()
		if handler != nil {
			handler(payload)
		}
	}
}
