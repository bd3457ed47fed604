package transport

import (
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Registry tracks the set of named network adapters attached to a node and
// fans outbound frames out to all of them.
type Registry struct {
	logger *logrus.Entry

	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry. A nil logger is replaced
// with a noop logger.
func NewRegistry(logger *logrus.Entry) *Registry {
	if logger == nil {
		logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return &Registry{
		logger:   logger,
		adapters: make(map[string]Adapter),
	}
}

// Register adds an adapter under the given name, replacing any adapter
// previously registered under the same name.
func (r *Registry) Register(name string, adapter Adapter) {
	r.mu.Lock()
	r.adapters[name] = adapter
	r.mu.Unlock()
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// OnMessage registers handler with every adapter currently in the
// registry.
func (r *Registry) OnMessage(handler Handler) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, adapter := range r.adapters {
		adapter.OnMessage(handler)
	}
}

// Broadcast forwards a frame to every registered adapter. An individual
// adapter's send failure is logged and does not abort the fan-out.
func (r *Registry) Broadcast(frame string) {
	for name, adapter := range r.snapshot() {
		if err := adapter.Send(frame); err != nil {
			r.logger.WithFields(logrus.Fields{
				"adapter": name,
				"err":     err,
			}).Warn("unable to send frame")
		}
	}
}

// StartAll starts every registered adapter, accumulating any failures.
func (r *Registry) StartAll() error {
	var err error
	for name, adapter := range r.snapshot() {
		if startErr := adapter.Start(); startErr != nil {
			err = multierror.Append(err, xerrors.Errorf("start %s: %w", name, startErr))
		}
	}
	return err
}

// StopAll stops every registered adapter, accumulating any failures.
func (r *Registry) StopAll() error {
	var err error
	for name, adapter := range r.snapshot() {
		if stopErr := adapter.Stop(); stopErr != nil {
			err = multierror.Append(err, xerrors.Errorf("stop %s: %w", name, stopErr))
		}
	}
	return err
}

func (r *Registry) snapshot() map[string]Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapters := make(map[string]Adapter, len(r.adapters))
	for name, adapter := range r.adapters {
		adapters[name] = adapter
	}
	return adapters
}
