package blocks

import "github.com/being-run/being/block"

// Trafo applies an affine transform, y = Scale*x + Offset, to its sole
// input, writing the result to its sole output.
type Trafo struct {
	*block.Base
	Scale, Offset float64
	in            *block.ValueInput
	out           *block.ValueOutput
}

// NewTrafo returns a Trafo block with the given scale and offset.
func NewTrafo(id string, scale, offset float64) *Trafo {
	t := &Trafo{Base: block.NewBase(id), Scale: scale, Offset: offset}
	t.in = t.AddValueInput("input")
	t.out = t.AddValueOutput("output")
	return t
}

// BlockBase exposes the embedded Base for Pipe/Link.
func (t *Trafo) BlockBase() *block.Base { return t.Base }

// Update writes Scale*input + Offset to the output.
func (t *Trafo) Update(cycle int64) error {
	t.out.Set(t.in.Get()*t.Scale + t.Offset)
	return nil
}
