package gunnode

import (
	"context"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"Gun_Graph/graph"
	"Gun_Graph/transport"
	"Gun_Graph/transport/ws"
)

// Config encapsulates the settings for configuring the gun node service.
type Config struct {
	// The address the websocket server adapter listens on. If empty, no
	// server adapter is registered and the node only dials peers.
	ListenAddr string

	// Websocket URLs of peers to dial.
	Peers []string

	// A clock instance for generating write timestamps. If not specified,
	// the default wall-clock will be used.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.ListenAddr == "" && len(cfg.Peers) == 0 {
		err = multierror.Append(err, xerrors.Errorf("neither a listen address nor peers have been provided"))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return err
}

// Service wires a graph to its websocket transports and manages their
// lifecycle.
type Service struct {
	cfg      Config
	graph    *graph.Graph
	adapters *transport.Registry
}

// NewService creates a new gun node service instance with the specified
// config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("gun node service: config validation failed: %w", err)
	}

	adapters := transport.NewRegistry(cfg.Logger)
	g, err := graph.NewGraph(graph.Config{
		Adapters: adapters,
		Clock:    cfg.Clock,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, xerrors.Errorf("gun node service: %w", err)
	}

	if cfg.ListenAddr != "" {
		server, err := ws.NewServer(ws.ServerConfig{
			ListenAddr: cfg.ListenAddr,
			Logger:     cfg.Logger,
		})
		if err != nil {
			return nil, xerrors.Errorf("gun node service: %w", err)
		}
		adapters.Register("ws_server", server)
	}
	for _, peer := range cfg.Peers {
		client, err := ws.NewClient(ws.ClientConfig{
			PeerURL: peer,
			Logger:  cfg.Logger,
		})
		if err != nil {
			return nil, xerrors.Errorf("gun node service: %w", err)
		}
		adapters.Register("ws_client/"+peer, client)
	}

	adapters.OnMessage(g.Root().HandleMessage)
	return &Service{cfg: cfg, graph: g, adapters: adapters}, nil
}

// Graph returns the graph maintained by this node.
func (svc *Service) Graph() *graph.Graph { return svc.graph }

// Root returns a view of the root vertex of the local graph.
func (svc *Service) Root() *graph.Node { return svc.graph.Root() }

// Name implements service.Service.
func (svc *Service) Name() string { return "gun-node" }

// Run implements service.Service.
func (svc *Service) Run(ctx context.Context) error {
	svc.cfg.Logger.WithFields(logrus.Fields{
		"listen_addr": svc.cfg.ListenAddr,
		"num_peers":   len(svc.cfg.Peers),
	}).Info("starting service")
	defer svc.cfg.Logger.Info("stopped service")

	if err := svc.adapters.StartAll(); err != nil {
		return xerrors.Errorf("gun node service: %w", err)
	}
	<-ctx.Done()
	if err := svc.adapters.StopAll(); err != nil {
		return xerrors.Errorf("gun node service: %w", err)
	}
	return nil
}
