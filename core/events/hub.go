package events

import "sync"

const historyLimit = 2048

// Hub is an in-process Emitter that fans events out to every live
// subscriber, keeping a bounded backlog so a subscriber that connects
// mid-stream can still be handed what it missed.
type Hub struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]chan Event
	history []Event
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan Event)}
}

// Emit satisfies Emitter: it appends to the bounded history and fans the
// event out to every subscriber's buffered channel, dropping it for any
// subscriber whose buffer is full rather than blocking the caller.
func (h *Hub) Emit(event Event) {
	h.mu.Lock()
	h.history = append(h.history, event)
	if len(h.history) > historyLimit {
		excess := len(h.history) - historyLimit
		trimmed := make([]Event, historyLimit)
		copy(trimmed, h.history[excess:])
		h.history = trimmed
	}
	subscribers := make([]chan Event, 0, len(h.subs))
	for _, ch := range h.subs {
		subscribers = append(subscribers, ch)
	}
	h.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a new listener and returns its channel, the current
// backlog (oldest first), and a cancel function the caller must invoke
// exactly once to unregister.
func (h *Hub) Subscribe() (<-chan Event, []Event, func()) {
	ch := make(chan Event, 32)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	backlog := make([]Event, len(h.history))
	copy(backlog, h.history)
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
			h.mu.Unlock()
		})
	}
	return ch, backlog, cancel
}
