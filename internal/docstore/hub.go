package docstore

import "sync"

// hub fans full-collection snapshots out to subscribers. Delivery is
// synchronous with the mutation that caused it, so callbacks observe changes
// in the order the store applied them.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[int]SnapshotFunc
	next int
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]SnapshotFunc)}
}

func subKey(uid, collection string) string {
	return uid + "/" + collection
}

func (h *hub) subscribe(uid, collection string, fn SnapshotFunc) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := subKey(uid, collection)
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]SnapshotFunc)
	}
	id := h.next
	h.next++
	h.subs[key][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[key], id)
	}
}

func (h *hub) publish(uid, collection string, docs []Document) {
	h.mu.Lock()
	fns := make([]SnapshotFunc, 0, len(h.subs[subKey(uid, collection)]))
	for _, fn := range h.subs[subKey(uid, collection)] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(docs)
	}
}
