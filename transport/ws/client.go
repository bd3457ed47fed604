package ws

import (
	"io"
	"net/http"
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"Gun_Graph/transport"
)

// ClientConfig encapsulates the settings for the websocket client adapter.
type ClientConfig struct {
	// The websocket URL of the peer to connect to.
	PeerURL string

	// The logger to use. If not specified, a default noop logger is used.
	Logger *logrus.Entry
}

func (cfg *ClientConfig) validate() error {
	var err error
	if cfg.PeerURL == "" {
		err = multierror.Append(err, xerrors.Errorf("peer URL has not been provided"))
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return err
}

// Client is a network adapter that maintains an outbound websocket
// connection to a single peer.
type Client struct {
	cfg ClientConfig

	mu      sync.RWMutex
	handler transport.Handler
	conn    *websocket.Conn

	writeMu sync.Mutex
}

// NewClient creates a websocket client adapter with the specified config.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("ws client: config validation failed: %w", err)
	}
	return &Client{cfg: cfg}, nil
}

// OnMessage implements transport.Adapter.
func (c *Client) OnMessage(handler transport.Handler) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// Start implements transport.Adapter by dialing the peer and spawning the
// read loop.
func (c *Client) Start() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.cfg.PeerURL, http.Header{})
	if err != nil {
		return xerrors.Errorf("ws client: unable to dial %s: %w", c.cfg.PeerURL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.cfg.Logger.WithField("peer", c.cfg.PeerURL).Info("connected to peer")

	go c.readLoop(conn)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.cfg.Logger.WithFields(logrus.Fields{
				"peer": c.cfg.PeerURL,
				"err":  err,
			}).Warn("peer connection closed")
			return
		}
		c.mu.RLock()
		handler := c.handler
		c.mu.RUnlock()
		if handler != nil {
			handler(payload)
		}
	}
}

// Stop implements transport.Adapter.
func (c *Client) Stop() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Send implements transport.Adapter.
func (c *Client) Send(frame string) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return xerrors.Errorf("ws client: not connected to %s", c.cfg.PeerURL)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, []byte(frame))
}
