package frontend

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"Gun_Graph/graph"
)

const graphEndpoint = "/graph/{path:.*}"

// GraphAPI defines the set of graph operations used by the front-end.
type GraphAPI interface {
	// Traverse walks the given keys from this vertex, allocating missing
	// vertices along the way.
	Traverse(keys ...string) *graph.Node
	// Resolve walks the given keys without allocating; it reports false
	// when any hop is missing.
	Resolve(keys ...string) (*graph.Node, bool)
}

// Config encapsulates the settings for configuring the front-end service.
type Config struct {
	// An API for reading and writing graph values. Typically the root
	// vertex of the local node.
	GraphAPI GraphAPI

	// The address to listen on for incoming requests.
	ListenAddr string

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.ListenAddr == "" {
		err = multierror.Append(err, xerrors.Errorf("listen address has not been specified"))
	}
	if cfg.GraphAPI == nil {
		err = multierror.Append(err, xerrors.Errorf("graph API has not been provided"))
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return err
}

// Service implements an HTTP gateway for reading and writing values of the
// local graph node.
type Service struct {
	cfg    Config
	router *mux.Router
}

// NewService creates a new front-end service instance with the specified
// config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("front-end service: config validation failed: %w", err)
	}
	svc := &Service{cfg: cfg, router: mux.NewRouter()}
	svc.router.HandleFunc(graphEndpoint, svc.readValue).Methods("GET")
	svc.router.HandleFunc(graphEndpoint, svc.writeValue).Methods("PUT", "POST")
	return svc, nil
}

// Name implements service.Service.
func (svc *Service) Name() string { return "front-end" }

// Run implements service.Service.
func (svc *Service) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", svc.cfg.ListenAddr)
	if err != nil {
		return err
	}
	defer func() {
		_ = l.Close()
	}()
	srv := &http.Server{
		Addr:    svc.cfg.ListenAddr,
		Handler: svc.router,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	svc.cfg.Logger.WithField("addr", svc.cfg.ListenAddr).Info("starting front-end server")
	if err = srv.Serve(l); err == http.ErrServerClosed {
		// Ignore error when the server shuts down.
		err = nil
	}
	return err
}

func (svc *Service) readValue(w http.ResponseWriter, r *http.Request) {
	keys := splitPath(mux.Vars(r)["path"])
	if len(keys) == 0 {
		http.Error(w, "missing graph path", http.StatusBadRequest)
		return
	}

	node, ok := svc.cfg.GraphAPI.Resolve(keys...)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	value, ok := node.Value()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		svc.cfg.Logger.WithField("err", err).Error("unable to encode graph value")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (svc *Service) writeValue(w http.ResponseWriter, r *http.Request) {
	keys := splitPath(mux.Vars(r)["path"])
	if len(keys) == 0 {
		http.Error(w, "missing graph path", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unable to read request body", http.StatusBadRequest)
		return
	}
	value, err := graph.DecodeValue(body)
	if err != nil {
		http.Error(w, "unable to decode value", http.StatusBadRequest)
		return
	}

	svc.cfg.GraphAPI.Traverse(keys...).Put(value)
	w.WriteHeader(http.StatusNoContent)
}

func splitPath(path string) []string {
	var keys []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			keys = append(keys, segment)
		}
	}
	return keys
}
