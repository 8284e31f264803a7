// Package block implements the typed value/message port system and the
// Block contract that the dataflow graph is built out of. It generalizes
// mgmt's SendableRes/RecvableRes traits (engine/sendrecv.go) -- a named,
// typed channel of data flowing between graph vertices -- into the simpler
// scalar value ports and discrete message queues this runtime needs.
package block

import "errors"

// ErrAlreadyConnected is returned by Connect when a value input that is
// already bound to a different output is asked to rebind.
var ErrAlreadyConnected = errors.New("block: value input is already connected")

// ErrTypeMismatch is returned by Connect when an attempt is made to wire a
// value port to a message port or vice versa.
var ErrTypeMismatch = errors.New("block: cannot connect ports of different kinds")

// ErrAmbiguousPort is returned by Pipe when a block does not expose exactly
// one candidate port on the side being resolved.
var ErrAmbiguousPort = errors.New("block: ambiguous port, more than one candidate (or none)")

// Port is implemented by every port type so that Pipe can resolve "the sole
// port" generically without knowing whether it is a value or message port.
type Port interface {
	PortName() string
}

// ValueOutput is an output value port. It holds the latest value written to
// it during the current tick; reading it never blocks and never mutates it.
type ValueOutput struct {
	Name  string
	value float64
}

// PortName implements Port.
func (o *ValueOutput) PortName() string { return o.Name }

// Set stores v as the latest value for this output.
func (o *ValueOutput) Set(v float64) { o.value = v }

// Get returns the latest value written to this output.
func (o *ValueOutput) Get() float64 { return o.value }

// ValueInput is an input value port. It reads from exactly one connected
// ValueOutput, or from its local default if unconnected.
type ValueInput struct {
	Name   string
	def    float64
	source *ValueOutput
}

// PortName implements Port.
func (i *ValueInput) PortName() string { return i.Name }

// SetDefault sets the value this input reads when unconnected.
func (i *ValueInput) SetDefault(v float64) { i.def = v }

// Get returns the connected output's latest value, or the local default if
// this input is not wired to anything.
func (i *ValueInput) Get() float64 {
	if i.source != nil {
		return i.source.Get()
	}
	return i.def
}

// Connected reports whether this input is bound to an output.
func (i *ValueInput) Connected() bool { return i.source != nil }

// MessageOutput is an output message port. It may fan out to any number of
// message inputs; each send delivers the message to every subscriber's own
// independent FIFO queue.
type MessageOutput struct {
	Name        string
	subscribers []*MessageInput
}

// PortName implements Port.
func (o *MessageOutput) PortName() string { return o.Name }

// Send enqueues msg on every connected input's queue, in subscription
// order, preserving per-(output,input) FIFO ordering.
func (o *MessageOutput) Send(msg interface{}) {
	for _, sub := range o.subscribers {
		sub.queue = append(sub.queue, msg)
	}
}

// MessageInput is an input message port backed by an independent FIFO
// queue, drained by Receive.
type MessageInput struct {
	Name  string
	queue []interface{}
}

// PortName implements Port.
func (i *MessageInput) PortName() string { return i.Name }

// Receive drains and returns every message queued since the last call, in
// arrival order. The queue is empty after this call.
func (i *MessageInput) Receive() []interface{} {
	if len(i.queue) == 0 {
		return nil
	}
	out := i.queue
	i.queue = nil
	return out
}

// Connect wires out to in. Connecting the same pair twice is a no-op.
// Connecting a value input that is already bound to a different output
// fails with ErrAlreadyConnected. Connecting a value port to a message
// port (or vice versa) fails with ErrTypeMismatch.
func Connect(out, in Port) error {
	switch o := out.(type) {
	case *ValueOutput:
		i, ok := in.(*ValueInput)
		if !ok {
			return ErrTypeMismatch
		}
		if i.source == o {
			return nil // idempotent
		}
		if i.source != nil {
			return ErrAlreadyConnected
		}
		i.source = o
		return nil
	case *MessageOutput:
		i, ok := in.(*MessageInput)
		if !ok {
			return ErrTypeMismatch
		}
		for _, sub := range o.subscribers {
			if sub == i {
				return nil // idempotent
			}
		}
		o.subscribers = append(o.subscribers, i)
		return nil
	default:
		return ErrTypeMismatch
	}
}
