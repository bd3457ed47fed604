package graph

import (
	"io"
	"sort"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"Gun_Graph/transport"
)

// Callback is invoked with the observed value and the key under which the
// notification is addressed.
type Callback func(value GunValue, key string)

// Config encapsulates the settings for creating a Graph.
type Config struct {
	// The registry of network adapters used for broadcasting wire frames
	// and receiving frames from peers. If not specified, an empty registry
	// is created; adapters can be registered on it later.
	Adapters *transport.Registry

	// A clock instance for generating write timestamps. If not specified,
	// the default wall-clock will be used.
	Clock clock.Clock

	// The logger to use. If not specified, a default noop logger is used.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	if cfg.Adapters == nil {
		cfg.Adapters = transport.NewRegistry(cfg.Logger)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	return nil
}

// Graph maintains the shared vertex store for a single gun node and hands
// out views of its vertices.
type Graph struct {
	cfg   Config
	store *nodeStore
	root  *Node
}

// NewGraph creates a graph containing only the root vertex.
func NewGraph(cfg Config) (*Graph, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("graph: config validation failed: %w", err)
	}

	g := &Graph{cfg: cfg, store: newNodeStore()}
	g.store.insert(newRecord(0, "", nil))
	g.root = &Node{id: 0, graph: g}
	return g, nil
}

// Root returns a view of the root vertex (id 0, empty key and path).
func (g *Graph) Root() *Node {
	return g.root
}

// Adapters returns the network adapter registry this graph broadcasts
// through.
func (g *Graph) Adapters() *transport.Registry {
	return g.cfg.Adapters
}

// Node is a view of a vertex in the graph. Several views may reference the
// same underlying vertex; the key is the name under which this particular
// view was reached and may differ between views of one vertex.
type Node struct {
	id    int
	key   string
	path  []string
	graph *Graph
}

// ID returns the vertex id this view references.
func (n *Node) ID() int { return n.id }

// Key returns the key under which this view addresses the vertex.
func (n *Node) Key() string { return n.key }

// Path returns the ancestor keys from the root down to (but excluding)
// this vertex's own key.
func (n *Node) Path() []string {
	path := make([]string, len(n.path))
	copy(path, n.path)
	return path
}

// Get returns a view of the child vertex stored under key, allocating it
// if it does not exist. When this vertex holds a scalar, a fresh child is
// always allocated: scalars and children are mutually exclusive, and the
// caller has signalled intent to descend.
//
// Get panics when key is empty.
func (n *Node) Get(key string) *Node {
	if key == "" {
		panic("graph: Get called with empty key")
	}
	rec, ok := n.graph.store.lookup(n.id)
	if !ok {
		panic("graph: view references unknown vertex")
	}

	// Fast path: an existing child only needs a read lock.
	rec.mu.RLock()
	if rec.value == nil {
		if existing, exists := rec.children[key]; exists {
			rec.mu.RUnlock()
			child, _ := n.graph.store.lookup(existing)
			return &Node{id: existing, key: key, path: child.path, graph: n.graph}
		}
	}
	rec.mu.RUnlock()

	rec.mu.Lock()
	var id int
	if rec.value != nil {
		id = n.allocChildLocked(rec, key)
	} else if existing, exists := rec.children[key]; exists {
		id = existing
	} else {
		id = n.allocChildLocked(rec, key)
	}
	rec.mu.Unlock()

	child, _ := n.graph.store.lookup(id)
	return &Node{id: id, key: key, path: child.path, graph: n.graph}
}

// allocChildLocked creates a child record under key and links it to the
// parent record, which must be write-locked by the caller.
func (n *Node) allocChildLocked(parent *record, key string) int {
	id := nextID()
	path := make([]string, len(n.path), len(n.path)+1)
	copy(path, n.path)
	if n.key != "" {
		path = append(path, n.key)
	}

	child := newRecord(id, key, path)
	child.parents[parentEdge{id: n.id, key: key}] = struct{}{}
	n.graph.store.insert(child)
	parent.children[key] = id
	return id
}

// Traverse walks the given keys from this vertex with Get semantics,
// allocating missing vertices along the way.
func (n *Node) Traverse(keys ...string) *Node {
	node := n
	for _, key := range keys {
		node = node.Get(key)
	}
	return node
}

// Resolve walks the given keys from this vertex without allocating
// anything. It reports false when any hop is missing.
func (n *Node) Resolve(keys ...string) (*Node, bool) {
	node := n
	for _, key := range keys {
		rec, ok := n.graph.store.lookup(node.id)
		if !ok {
			return nil, false
		}
		rec.mu.RLock()
		id, exists := rec.children[key]
		rec.mu.RUnlock()
		if !exists {
			return nil, false
		}
		child, ok := n.graph.store.lookup(id)
		if !ok {
			return nil, false
		}
		node = &Node{id: id, key: key, path: child.path, graph: n.graph}
	}
	return node, true
}

// Put assigns a scalar value to this vertex, fires subscribers, and
// broadcasts the update to all registered network adapters. The wall clock
// is read exactly once per call.
func (n *Node) Put(value GunValue) {
	ts := float64(n.graph.cfg.Clock.Now().UnixNano()) / 1000.0
	n.putLocal(value, ts)
	if n.graph.cfg.Adapters.Len() > 0 {
		n.graph.cfg.Adapters.Broadcast(newPutMessage(n.path, n.key, value, ts))
	}
}

// putLocal applies a write that has already been assigned a timestamp. It
// is also the application point for updates accepted by the merge engine.
//
// Subscriber ordering: this vertex's own on-subscribers fire first, then
// for each parent edge its map-subscribers, then its on-subscribers with
// the parent's aggregate, and finally the parent's scalar is cleared so
// the parent becomes an interior node.
func (n *Node) putLocal(value GunValue, ts float64) {
	rec, ok := n.graph.store.lookup(n.id)
	if !ok {
		return
	}

	rec.mu.Lock()
	rec.updatedAt = ts
	rec.value = value
	rec.children = make(map[string]int)
	parents := make([]parentEdge, 0, len(rec.parents))
	for edge := range rec.parents {
		parents = append(parents, edge)
	}
	rec.mu.Unlock()

	for _, cb := range rec.snapshotOnSubs() {
		cb(value, n.key)
	}

	sort.Slice(parents, func(i, j int) bool {
		if parents[i].id != parents[j].id {
			return parents[i].id < parents[j].id
		}
		return parents[i].key < parents[j].key
	})
	for _, edge := range parents {
		parent, ok := n.graph.store.lookup(edge.id)
		if !ok {
			continue
		}
		for _, cb := range parent.snapshotMapSubs() {
			cb(value, edge.key)
		}
		if onSubs := parent.snapshotOnSubs(); len(onSubs) > 0 {
			if aggregate, ok := n.graph.gunValueOf(parent); ok {
				for _, cb := range onSubs {
					cb(aggregate, edge.key)
				}
			}
		}
		parent.mu.Lock()
		parent.value = nil
		parent.mu.Unlock()
	}
}

// On registers a subscriber fired whenever this vertex's observable value
// changes. When the vertex currently has an observable value the callback
// is invoked immediately. A wire get is broadcast so peers may respond
// with their version of the value. Returns the subscription id.
func (n *Node) On(cb Callback) int {
	if value, ok := n.Value(); ok {
		cb(value, n.key)
	}

	subID := nextID()
	rec, ok := n.graph.store.lookup(n.id)
	if !ok {
		return subID
	}
	rec.subMu.Lock()
	rec.onSubs[subID] = cb
	rec.subMu.Unlock()

	if n.graph.cfg.Adapters.Len() > 0 {
		n.graph.cfg.Adapters.Broadcast(newGetMessage(n.path, n.key))
	}
	return subID
}

// Map registers a subscriber fired with (child value, child key) whenever
// any child of this vertex is written. Existing children with observable
// values are delivered immediately, in key order. Returns the
// subscription id.
func (n *Node) Map(cb Callback) int {
	rec, ok := n.graph.store.lookup(n.id)
	if !ok {
		return nextID()
	}

	for _, entry := range rec.sortedChildren() {
		child, ok := n.graph.store.lookup(entry.id)
		if !ok {
			continue
		}
		if value, ok := n.graph.gunValueOf(child); ok {
			cb(value, entry.key)
		}
	}

	subID := nextID()
	rec.subMu.Lock()
	rec.mapSubs[subID] = cb
	rec.subMu.Unlock()
	return subID
}

// Off cancels the subscription with the given id. It is harmless when the
// id is absent from either table.
func (n *Node) Off(subID int) {
	rec, ok := n.graph.store.lookup(n.id)
	if !ok {
		return
	}
	rec.subMu.Lock()
	delete(rec.onSubs, subID)
	delete(rec.mapSubs, subID)
	rec.subMu.Unlock()
}

// Value returns the vertex's observable value: its scalar if it has one,
// otherwise an aggregate synthesized from its children. ok is false only
// when the vertex has neither a value nor children.
func (n *Node) Value() (GunValue, bool) {
	rec, ok := n.graph.store.lookup(n.id)
	if !ok {
		return nil, false
	}
	return n.graph.gunValueOf(rec)
}

func (n *Node) updatedAt() float64 {
	rec, ok := n.graph.store.lookup(n.id)
	if !ok {
		return 0
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.updatedAt
}

// gunValueOf synthesizes the observable value of a record: the scalar if
// present, else a Children aggregate mapping each child key to the child's
// scalar or to a Link when the child is itself an interior node.
func (g *Graph) gunValueOf(rec *record) (GunValue, bool) {
	rec.mu.RLock()
	if rec.value != nil {
		value := rec.value
		rec.mu.RUnlock()
		return value, true
	}
	rec.mu.RUnlock()

	entries := rec.sortedChildren()
	if len(entries) == 0 {
		return nil, false
	}

	aggregate := make(Children, len(entries))
	for _, entry := range entries {
		child, ok := g.store.lookup(entry.id)
		if !ok {
			continue
		}
		child.mu.RLock()
		if child.value != nil {
			aggregate[entry.key] = child.value
		} else {
			aggregate[entry.key] = Link(entry.id)
		}
		child.mu.RUnlock()
	}
	return aggregate, true
}
