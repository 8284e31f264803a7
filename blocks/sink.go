package blocks

import "github.com/being-run/being/block"

// Sink is a terminal observer block: it records every value it sees on
// its sole input, in tick order. Used as the last stage of test and demo
// graphs, and as the basis for scenario assertions.
type Sink struct {
	*block.Base
	in      *block.ValueInput
	Samples []float64
}

// NewSink returns an empty Sink block.
func NewSink(id string) *Sink {
	s := &Sink{Base: block.NewBase(id)}
	s.in = s.AddValueInput("input")
	return s
}

// BlockBase exposes the embedded Base for Pipe/Link.
func (s *Sink) BlockBase() *block.Base { return s.Base }

// Update appends the input's current value to Samples.
func (s *Sink) Update(cycle int64) error {
	s.Samples = append(s.Samples, s.in.Get())
	return nil
}
