// Package telemetry implements the sampled state/event JSON records the
// core emits, a bounded drop-oldest ring buffer standing in for the
// front-end's queue, and a websocket broker that fans both record kinds
// out to connected clients. It is grounded on prometheus/prometheus.go's
// HTTP-serving pattern for its companion metrics endpoint, and resolves
// the telemetry back-pressure question with a bounded ring (capacity 4)
// and drop-oldest semantics (see DESIGN.md).
package telemetry

import "fmt"

// BeingStateRecord is emitted once per WEB_INTERVAL by the telemetry
// sampler: the clock timestamp, every value output's current value in
// execution order, and every message output's queued messages since the
// last sample.
type BeingStateRecord struct {
	Type      string          `json:"type"`
	Timestamp float64         `json:"timestamp"`
	Values    []float64       `json:"values"`
	Messages  [][]interface{} `json:"messages"`
}

// NewBeingStateRecord builds a BeingStateRecord with Type pre-filled.
func NewBeingStateRecord(timestamp float64, values []float64, messages [][]interface{}) BeingStateRecord {
	return BeingStateRecord{Type: "being-state", Timestamp: timestamp, Values: values, Messages: messages}
}

// MotorEvent is the event kind of a MotorEventRecord.
type MotorEvent string

const (
	MotorEventStateChanged  MotorEvent = "STATE_CHANGED"
	MotorEventHomingChanged MotorEvent = "HOMING_CHANGED"
	MotorEventError         MotorEvent = "ERROR"
)

// MotorEventRecord is published whenever a controller's state, homing
// progress, or EMCY inbox changes.
type MotorEventRecord struct {
	Type    string      `json:"type"`
	Event   MotorEvent  `json:"event"`
	Motor   int         `json:"motor"`
	Payload interface{} `json:"payload"`
}

// NewMotorEventRecord builds a MotorEventRecord with Type pre-filled.
// payload is rendered through its Stringer, if it has one, so enum-like
// values (canopen.State, homing.State) serialize as their symbolic name
// rather than a bare integer.
func NewMotorEventRecord(event MotorEvent, motor int, payload interface{}) MotorEventRecord {
	return MotorEventRecord{Type: "motor-event", Event: event, Motor: motor, Payload: stringify(payload)}
}

func stringify(v interface{}) interface{} {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return v
}
