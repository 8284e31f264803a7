package blocks

import "github.com/being-run/being/block"

// Behavior is a generic block whose per-tick logic is supplied by the
// caller as Step -- the typed equivalent of the source's ad-hoc
// behaviors, which inject ports onto a bare object and define update()
// dynamically. Step receives the Behavior itself so it can read its own
// ports without a closure capturing them separately.
type Behavior struct {
	*block.Base
	Step func(cycle int64, self *Behavior) error
}

// NewBehavior returns a Behavior block with no ports pre-registered;
// callers add whatever value/message ports their Step function needs via
// the embedded Base before wiring it into a graph.
func NewBehavior(id string, step func(cycle int64, self *Behavior) error) *Behavior {
	return &Behavior{Base: block.NewBase(id), Step: step}
}

// BlockBase exposes the embedded Base for Pipe/Link.
func (b *Behavior) BlockBase() *block.Base { return b.Base }

// Update runs Step for the current tick.
func (b *Behavior) Update(cycle int64) error { return b.Step(cycle, b) }

// IsBehavior marks this block for Being's behaviors role collection.
func (b *Behavior) IsBehavior() bool { return true }
