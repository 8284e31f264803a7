// Package blocks provides the concrete dataflow block kinds: signal
// sources and transforms for composing test/demo graphs, sensors and
// behaviors for driving real motion, and a Motor block adapting a
// controller.Controller into a graph vertex. Each embeds block.Base and
// implements block.Block, using its typed named-port table in place of a
// duck-typed update().
package blocks

import (
	"math"

	"github.com/being-run/being/block"
	"github.com/being-run/being/clock"
)

// Sine emits sin(2*pi*Freq*t) on its sole output, sampling the shared
// clock's current time each tick.
type Sine struct {
	*block.Base
	Freq  float64
	clock *clock.Clock
	out   *block.ValueOutput
}

// NewSine returns a Sine block sampling clk at frequency freq (Hz).
func NewSine(id string, freq float64, clk *clock.Clock) *Sine {
	s := &Sine{Base: block.NewBase(id), Freq: freq, clock: clk}
	s.out = s.AddValueOutput("output")
	return s
}

// BlockBase exposes the embedded Base for Pipe/Link.
func (s *Sine) BlockBase() *block.Base { return s.Base }

// Update writes sin(2*pi*Freq*t) to the output for the current tick.
func (s *Sine) Update(cycle int64) error {
	t := s.clock.Now()
	s.out.Set(math.Sin(2 * math.Pi * s.Freq * t))
	return nil
}
