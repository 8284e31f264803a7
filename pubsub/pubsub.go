// Package pubsub provides the synchronous, in-process event delivery
// Controller uses for its STATE_CHANGED, HOMING_CHANGED, and ERROR
// notifications. It is grounded on engine/event/event.go's Kind/Msg
// shape, generalized from "one ACK-able message" to "a typed event fanned
// out to zero or more subscribers", since Controller's callers want
// synchronous delivery rather than a channel handshake.
package pubsub

import (
	"errors"
	"sync"
)

// Kind identifies the class of event being published.
type Kind int

const (
	KindStateChanged Kind = iota
	KindHomingChanged
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindStateChanged:
		return "STATE_CHANGED"
	case KindHomingChanged:
		return "HOMING_CHANGED"
	case KindError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is one notification delivered to subscribers. Data carries
// whatever payload is relevant to Kind (e.g. the new canopen.State for
// KindStateChanged, or the canopen.EMCYRecord for KindError).
type Event struct {
	Kind   Kind
	NodeID int
	Data   interface{}
}

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine and must not block or publish to the same Bus --
// see ErrReentrantPublish.
type Handler func(Event)

// ErrReentrantPublish is returned by Publish when called from within a
// handler that is itself running as a result of an in-progress Publish.
// Pub/sub here is deliberately synchronous and single-threaded per tick;
// re-entrant publishing would either deadlock a channel-based bus or
// silently reorder events, so it's rejected outright instead.
var ErrReentrantPublish = errors.New("pubsub: publish called re-entrantly from a handler")

// Bus fans a published Event out to every Handler subscribed to its Kind,
// in subscription order, synchronously on the caller's goroutine.
type Bus struct {
	mu          sync.Mutex
	subscribers map[Kind][]Handler
	publishing  bool
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[Kind][]Handler)}
}

// Subscribe registers h to be called for every future Publish of kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[kind] = append(b.subscribers[kind], h)
}

// Publish delivers e to every subscriber of e.Kind, in order, returning
// ErrReentrantPublish instead of recursing if a handler calls Publish
// again before the outer Publish has returned.
func (b *Bus) Publish(e Event) error {
	b.mu.Lock()
	if b.publishing {
		b.mu.Unlock()
		return ErrReentrantPublish
	}
	b.publishing = true
	handlers := append([]Handler(nil), b.subscribers[e.Kind]...)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.publishing = false
		b.mu.Unlock()
	}()

	for _, h := range handlers {
		h(e)
	}
	return nil
}
