package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/being-run/being/pubsub"
)

// clientSendBuffer bounds how many records a single slow client can fall
// behind by before Broker starts dropping frames meant for it alone (the
// central Ring's drop-oldest bound governs backfill for newly connecting
// clients; this bounds the live fan-out path).
const clientSendBuffer = 16

// client is one connected websocket subscriber.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Broker fans BeingStateRecord and MotorEventRecord JSON out to every
// connected websocket client, backed by a bounded drop-oldest Ring so a
// newly connecting client can backfill recent history and a stalled
// producer never blocks the scheduler (see DESIGN.md for the
// back-pressure tradeoff this resolves). It implements scheduler.Sampler
// (via Sample) and can be subscribed to a pubsub.Bus (via
// HandleMotorEvent) to also carry motor events.
type Broker struct {
	ring     *Ring
	sem      *semaphore
	metrics  *metrics
	upgrader websocket.Upgrader
	Logf     func(format string, v ...interface{})

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewBroker returns a Broker backed by a Ring of the given capacity,
// accepting at most maxClients concurrent websocket connections. logf
// defaults to a no-op if nil.
func NewBroker(ringCapacity, maxClients int, logf func(string, ...interface{})) *Broker {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Broker{
		ring:    NewRing(ringCapacity),
		sem:     newSemaphore(maxClients),
		metrics: newMetrics(),
		Logf:    logf,
		clients: make(map[*client]struct{}),
	}
}

// Sample implements scheduler.Sampler: it builds and publishes a
// BeingStateRecord for the current telemetry snapshot.
func (b *Broker) Sample(timestamp float64, values []float64, messages [][]interface{}) {
	b.publish(NewBeingStateRecord(timestamp, values, messages))
}

// HandleMotorEvent implements pubsub.Handler. Subscribe it to a
// Controller's Bus for KindStateChanged, KindHomingChanged, and
// KindError to carry motor-event records over the same broker.
func (b *Broker) HandleMotorEvent(e pubsub.Event) {
	var kind MotorEvent
	switch e.Kind {
	case pubsub.KindStateChanged:
		kind = MotorEventStateChanged
	case pubsub.KindHomingChanged:
		kind = MotorEventHomingChanged
	case pubsub.KindError:
		kind = MotorEventError
	default:
		return
	}
	b.publish(NewMotorEventRecord(kind, e.NodeID, e.Data))
}

func (b *Broker) publish(rec interface{}) {
	data, err := json.Marshal(rec)
	if err != nil {
		b.Logf("telemetry: marshal record: %v", err)
		return
	}

	before := b.ring.Dropped()
	b.ring.Push(data)
	if b.ring.Dropped() != before {
		b.metrics.droppedTotal.Inc()
	}

	b.mu.Lock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			b.Logf("telemetry: client too slow, dropping frame")
		}
	}
}

// ServeHTTP upgrades the request to a websocket connection and streams
// the current ring backfill followed by every subsequently published
// record, until the connection closes or Close is called. Connections
// beyond the configured client limit are rejected with 503.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !b.sem.tryAcquire() {
		b.metrics.rejectedTotal.Inc()
		http.Error(w, "telemetry: too many clients", http.StatusServiceUnavailable)
		return
	}
	defer b.sem.release()

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.Logf("telemetry: upgrade: %v", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	b.register(c)
	b.metrics.connectedGauge.Inc()
	defer func() {
		b.unregister(c)
		b.metrics.connectedGauge.Dec()
	}()

	for _, data := range b.ring.Snapshot() {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	for data := range c.send {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (b *Broker) register(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c] = struct{}{}
}

func (b *Broker) unregister(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

// Close stops accepting new websocket connections. Already-connected
// clients are left to drain until their TCP connection drops.
func (b *Broker) Close() error {
	b.sem.close()
	return nil
}
