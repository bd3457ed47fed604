package transport

// Handler is invoked with each raw text frame received by an adapter.
type Handler func(frame []byte)

// Adapter is implemented by transports that deliver inbound wire frames
// from peers and broadcast outbound frames to them.
type Adapter interface {
	// OnMessage registers the callback invoked with each received frame.
	OnMessage(handler Handler)

	// Start makes the adapter begin accepting connections and delivering
	// frames.
	Start() error

	// Stop tears the adapter down and disconnects its peers.
	Stop() error

	// Send broadcasts a text frame to every currently connected peer.
	Send(frame string) error
}
