package block

import "strconv"

// Block is the contract every node in the dataflow graph satisfies: a
// stable identity and a per-tick update. Concrete blocks embed Base for the
// port bookkeeping and implement Update themselves, replacing a
// duck-typed update()/attribute-injection style with a single typed
// interface over a named port table.
type Block interface {
	ID() string
	Update(cycle int64) error
}

// Base implements the named-port bookkeeping shared by every concrete
// block: registration, uniqueness, and the sole-port resolution Pipe needs.
// It does not implement Update -- concrete blocks provide that themselves.
type Base struct {
	id string

	valueInputOrder  []string
	valueInputs      map[string]*ValueInput
	valueOutputOrder []string
	valueOutputs     map[string]*ValueOutput

	messageInputOrder  []string
	messageInputs      map[string]*MessageInput
	messageOutputOrder []string
	messageOutputs     map[string]*MessageOutput

	// downstream records every block this one has been wired into, via
	// Pipe or Link, so Being can walk the dataflow graph from a seed set
	// by following port connections without needing a separate adjacency
	// list maintained by hand.
	downstream []Block
}

// NewBase returns a Base with the given stable identity.
func NewBase(id string) *Base {
	return &Base{
		id:             id,
		valueInputs:    make(map[string]*ValueInput),
		valueOutputs:   make(map[string]*ValueOutput),
		messageInputs:  make(map[string]*MessageInput),
		messageOutputs: make(map[string]*MessageOutput),
	}
}

// ID returns the block's stable identity.
func (b *Base) ID() string { return b.id }

// AddValueInput registers a new value input port. Port names must be
// unique within a block; an empty name is auto-assigned as "value_input",
// then "value_input_N" for later unnamed ports.
func (b *Base) AddValueInput(name string) *ValueInput {
	name = b.uniqueName(name, "value_input")
	p := &ValueInput{Name: name}
	b.valueInputs[name] = p
	b.valueInputOrder = append(b.valueInputOrder, name)
	return p
}

// AddValueOutput registers a new value output port.
func (b *Base) AddValueOutput(name string) *ValueOutput {
	name = b.uniqueName(name, "value_output")
	p := &ValueOutput{Name: name}
	b.valueOutputs[name] = p
	b.valueOutputOrder = append(b.valueOutputOrder, name)
	return p
}

// AddMessageInput registers a new message input port.
func (b *Base) AddMessageInput(name string) *MessageInput {
	name = b.uniqueName(name, "message_input")
	p := &MessageInput{Name: name}
	b.messageInputs[name] = p
	b.messageInputOrder = append(b.messageInputOrder, name)
	return p
}

// AddMessageOutput registers a new message output port.
func (b *Base) AddMessageOutput(name string) *MessageOutput {
	name = b.uniqueName(name, "message_output")
	p := &MessageOutput{Name: name}
	b.messageOutputs[name] = p
	b.messageOutputOrder = append(b.messageOutputOrder, name)
	return p
}

func (b *Base) uniqueName(name, prefix string) string {
	if name != "" {
		return name
	}
	taken := func(n string) bool {
		_, vi := b.valueInputs[n]
		_, vo := b.valueOutputs[n]
		_, mi := b.messageInputs[n]
		_, mo := b.messageOutputs[n]
		return vi || vo || mi || mo
	}
	name = prefix // first auto-named port keeps the bare prefix
	for n := 1; taken(name); n++ {
		name = prefix + "_" + strconv.Itoa(n)
	}
	return name
}

// ValueInput looks up a registered value input port by name.
func (b *Base) ValueInput(name string) (*ValueInput, bool) { p, ok := b.valueInputs[name]; return p, ok }

// ValueOutput looks up a registered value output port by name.
func (b *Base) ValueOutput(name string) (*ValueOutput, bool) {
	p, ok := b.valueOutputs[name]
	return p, ok
}

// MessageInput looks up a registered message input port by name.
func (b *Base) MessageInput(name string) (*MessageInput, bool) {
	p, ok := b.messageInputs[name]
	return p, ok
}

// MessageOutput looks up a registered message output port by name.
func (b *Base) MessageOutput(name string) (*MessageOutput, bool) {
	p, ok := b.messageOutputs[name]
	return p, ok
}

// ValueOutputs returns every value output port in registration order; used
// by Being to build the telemetry snapshot's flat value-output list.
func (b *Base) ValueOutputs() []*ValueOutput {
	out := make([]*ValueOutput, len(b.valueOutputOrder))
	for i, name := range b.valueOutputOrder {
		out[i] = b.valueOutputs[name]
	}
	return out
}

// MessageOutputs returns every message output port in registration order.
func (b *Base) MessageOutputs() []*MessageOutput {
	out := make([]*MessageOutput, len(b.messageOutputOrder))
	for i, name := range b.messageOutputOrder {
		out[i] = b.messageOutputs[name]
	}
	return out
}

// Downstream returns every block this one has been wired into, in wiring
// order, for graph discovery.
func (b *Base) Downstream() []Block {
	out := make([]Block, len(b.downstream))
	copy(out, b.downstream)
	return out
}

// SoleOutput returns the block's only candidate output port -- value or
// message -- or ErrAmbiguousPort if it has zero or more than one.
func (b *Base) SoleOutput() (Port, error) {
	total := len(b.valueOutputOrder) + len(b.messageOutputOrder)
	if total != 1 {
		return nil, ErrAmbiguousPort
	}
	if len(b.valueOutputOrder) == 1 {
		return b.valueOutputs[b.valueOutputOrder[0]], nil
	}
	return b.messageOutputs[b.messageOutputOrder[0]], nil
}

// SoleInput returns the block's only candidate input port -- value or
// message -- or ErrAmbiguousPort if it has zero or more than one.
func (b *Base) SoleInput() (Port, error) {
	total := len(b.valueInputOrder) + len(b.messageInputOrder)
	if total != 1 {
		return nil, ErrAmbiguousPort
	}
	if len(b.valueInputOrder) == 1 {
		return b.valueInputs[b.valueInputOrder[0]], nil
	}
	return b.messageInputs[b.messageInputOrder[0]], nil
}

// Pipe connects the sole output port of a to the sole input port of b and
// returns b, so chains can be built as Pipe(Pipe(a, b), c). It fails with
// ErrAmbiguousPort if either side doesn't expose exactly one candidate
// port. Go has no operator overloading, so Pipe is the named-function
// equivalent of a pipe-style `a | b` connection operator.
func Pipe(a, b Block) (Block, error) {
	ports := func(blk Block) (*Base, error) {
		// concrete blocks expose their *Base via embedding; we look it
		// up through the optional Baser interface so Pipe works on any
		// Block without a type assertion per concrete kind.
		if bb, ok := blk.(Baser); ok {
			return bb.BlockBase(), nil
		}
		return nil, ErrAmbiguousPort
	}

	ab, err := ports(a)
	if err != nil {
		return nil, err
	}
	bb, err := ports(b)
	if err != nil {
		return nil, err
	}

	out, err := ab.SoleOutput()
	if err != nil {
		return nil, err
	}
	in, err := bb.SoleInput()
	if err != nil {
		return nil, err
	}
	if err := Connect(out, in); err != nil {
		return nil, err
	}
	ab.downstream = append(ab.downstream, b)
	return b, nil
}

// Link connects a named output port of a to a named input port of b,
// recording the wiring so Being's graph walk follows it -- the
// multi-port counterpart to Pipe, for blocks that expose more than one
// candidate port and so can't rely on sole-port resolution.
func Link(a Block, outName string, b Block, inName string) error {
	ab, ok := a.(Baser)
	if !ok {
		return ErrAmbiguousPort
	}
	bb, ok := b.(Baser)
	if !ok {
		return ErrAmbiguousPort
	}

	out, err := resolvePort(ab.BlockBase(), outName, true)
	if err != nil {
		return err
	}
	in, err := resolvePort(bb.BlockBase(), inName, false)
	if err != nil {
		return err
	}
	if err := Connect(out, in); err != nil {
		return err
	}
	ab.BlockBase().downstream = append(ab.BlockBase().downstream, b)
	return nil
}

// resolvePort looks up a named port among a block's outputs (or inputs)
// across both the value and message port tables.
func resolvePort(base *Base, name string, output bool) (Port, error) {
	if output {
		if p, ok := base.ValueOutput(name); ok {
			return p, nil
		}
		if p, ok := base.MessageOutput(name); ok {
			return p, nil
		}
		return nil, ErrAmbiguousPort
	}
	if p, ok := base.ValueInput(name); ok {
		return p, nil
	}
	if p, ok := base.MessageInput(name); ok {
		return p, nil
	}
	return nil, ErrAmbiguousPort
}

// Baser is implemented by blocks that expose their embedded *Base, which is
// all concrete blocks in this module (see blocks package). It lets Pipe
// resolve sole ports without a type switch per concrete block kind.
type Baser interface {
	BlockBase() *Base
}
