package blocks

import "github.com/being-run/being/block"

// Sensor adapts an opaque reader into a value-output block. Reading the
// underlying transport is out of this module's scope, so Read is
// supplied by the caller -- a closure over whatever hardware or
// simulated source is wired up outside Being.
type Sensor struct {
	*block.Base
	Read func() (float64, error)
	out  *block.ValueOutput
}

// NewSensor returns a Sensor block sampling read once per tick.
func NewSensor(id string, read func() (float64, error)) *Sensor {
	s := &Sensor{Base: block.NewBase(id), Read: read}
	s.out = s.AddValueOutput("output")
	return s
}

// BlockBase exposes the embedded Base for Pipe/Link.
func (s *Sensor) BlockBase() *block.Base { return s.Base }

// Update samples Read and writes the result to the output.
func (s *Sensor) Update(cycle int64) error {
	v, err := s.Read()
	if err != nil {
		return err
	}
	s.out.Set(v)
	return nil
}
