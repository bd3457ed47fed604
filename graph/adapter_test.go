package graph

import (
	"sync"

	"golang.org/x/xerrors"

	"Gun_Graph/transport"
)

// recordingAdapter implements transport.Adapter for tests: it records
// outbound frames and injects inbound frames into the registered handler.
type recordingAdapter struct {
	mu       sync.Mutex
	handler  transport.Handler
	sent     []string
	failSend bool
}

func newRecordingAdapter() *recordingAdapter { return &recordingAdapter{} }

func (a *recordingAdapter) OnMessage(handler transport.Handler) {
	a.mu.Lock()
	a.handler = handler
	a.mu.Unlock()
}

func (a *recordingAdapter) Start() error { return nil }
func (a *recordingAdapter) Stop() error  { return nil }

func (a *recordingAdapter) Send(frame string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failSend {
		return xerrors.New("send failed")
	}
	a.sent = append(a.sent, frame)
	return nil
}

func (a *recordingAdapter) sentFrames() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	frames := make([]string, len(a.sent))
	copy(frames, a.sent)
	return frames
}

func (a *recordingAdapter) reset() {
	a.mu.Lock()
	a.sent = nil
	a.mu.Unlock()
}

func (a *recordingAdapter) inject(frame string) {
	a.mu.Lock()
	handler := a.handler
	a.mu.Unlock()
	if handler != nil {
		handler([]byte(frame))
	}
}
