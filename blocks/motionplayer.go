package blocks

import "github.com/being-run/being/block"

// MotionProvider supplies the next setpoint of a pre-recorded or
// procedurally generated motion; the actual motion source (file, spline,
// whatever) is out of this module's scope.
type MotionProvider interface {
	// NextPosition returns the setpoint for cycle and whether the
	// provider still has motion left to play.
	NextPosition(cycle int64) (pos float64, more bool)
}

// MotionPlayer drives its sole output from a MotionProvider, one
// setpoint per tick, stopping once the provider is exhausted.
type MotionPlayer struct {
	*block.Base
	Provider MotionProvider
	out      *block.ValueOutput
	done     bool
}

// NewMotionPlayer returns a MotionPlayer driven by provider.
func NewMotionPlayer(id string, provider MotionProvider) *MotionPlayer {
	m := &MotionPlayer{Base: block.NewBase(id), Provider: provider}
	m.out = m.AddValueOutput("output")
	return m
}

// BlockBase exposes the embedded Base for Pipe/Link.
func (m *MotionPlayer) BlockBase() *block.Base { return m.Base }

// Update samples the next setpoint and writes it to the output, unless
// the provider has already reported it is out of motion.
func (m *MotionPlayer) Update(cycle int64) error {
	if m.done {
		return nil
	}
	pos, more := m.Provider.NextPosition(cycle)
	m.out.Set(pos)
	if !more {
		m.done = true
	}
	return nil
}

// Done reports whether the provider has been exhausted.
func (m *MotionPlayer) Done() bool { return m.done }

// IsMotionPlayer marks this block for Being's motionPlayers role
// collection.
func (m *MotionPlayer) IsMotionPlayer() bool { return true }
