package server

import (
	"sync"

	"github.com/pdrpinto/gridastar"
)

const subscriberBuffer = 1024

// message is the wire form of an engine event.
type message struct {
	Kind string          `json:"kind"`
	Data gridastar.Event `json:"data"`
}

// hub fans engine events out to websocket subscribers. A subscriber that
// falls a full buffer behind is dropped.
type hub struct {
	mu     sync.Mutex
	subs   map[chan message]struct{}
	closed bool
}

func newHub() *hub {
	return &hub{subs: map[chan message]struct{}{}}
}

func (h *hub) subscribe() (<-chan message, func()) {
	ch := make(chan message, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	return ch, func() { h.remove(ch) }
}

func (h *hub) remove(ch chan message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *hub) broadcast(event gridastar.Event) {
	msg := message{Kind: event.Kind(), Data: event}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
