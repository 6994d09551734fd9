package orchestrator

import (
	"sync"

	"coinclarity/internal/domain"
)

// JobEvent is a lifecycle notification for one analysis job. Events are
// emitted on every state transition and carry enough context for a
// subscriber to decide whether to fetch the report.
type JobEvent struct {
	JobID       string          `json:"jobId"`
	Fingerprint string          `json:"fingerprint"`
	State       domain.JobState `json:"state"`
	Error       string          `json:"error,omitempty"`
}

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls further behind than this loses events rather than stalling
// a worker.
const subscriberBuffer = 16

type eventHub struct {
	mu   sync.RWMutex
	subs map[chan JobEvent]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan JobEvent]struct{})}
}

// subscribe registers a new listener. The returned cancel func removes
// the listener and closes its channel; calling it twice is safe.
func (h *eventHub) subscribe() (chan JobEvent, func()) {
	ch := make(chan JobEvent, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// publish delivers the event to every subscriber without blocking.
// Closing a channel happens under the write lock, so a send here can
// never race a close.
func (h *eventHub) publish(e JobEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
