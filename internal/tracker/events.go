package tracker

import "sync"

// Event types pushed to watchers (the SSE stream and tests).
const (
	// EventChange names the collection whose mirror was just replaced.
	EventChange = "change"
	// EventNotice carries a transient user-facing message.
	EventNotice = "notice"
)

// Event is one push to a watcher.
type Event struct {
	Type string `json:"type"`
	Kind string `json:"kind,omitempty"` // notice kind: success, error, info
	Data string `json:"data,omitempty"`
}

// eventHub fans tracker events out to any number of watchers. Sends never
// block: a watcher that falls behind misses events rather than stalling the
// subscription callback that produced them.
type eventHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[int]chan Event)}
}

// Watch returns a channel of tracker events and a cancel function.
func (t *Tracker) Watch() (<-chan Event, func()) {
	return t.events.watch()
}

func (h *eventHub) watch() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

func (h *eventHub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
