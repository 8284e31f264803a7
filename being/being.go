// Package being implements the façade that composes a seed set of blocks
// into a graph, derives a stable execution
// order, and curates the motors/behaviors/motionPlayers collections a
// scheduler drives each tick. It is grounded on engine/graph/engine.go's
// Engine struct (Load/Commit/Validate, one convergence pass per Process
// call) generalized from "resource graph convergence" to "block graph
// execution": New plays the role of Commit, SingleCycle the role of one
// Process pass.
package being

import (
	"io"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/being-run/being/block"
	"github.com/being-run/being/clock"
	"github.com/being-run/being/pgraph"
)

// motor is the role interface Being needs from a motor block: the two
// asynchronous jobs EnableMotors/HomeMotors start, plus the same Update
// contract every block satisfies. blocks.Motor implements it.
type motor interface {
	block.Block
	IsMotor() bool
	Enable() error
	Home() error
	Homed() bool
}

// behavior is the role interface for Being's behaviors collection.
type behavior interface {
	block.Block
	IsBehavior() bool
}

// motionPlayer is the role interface for Being's motionPlayers collection.
type motionPlayer interface {
	block.Block
	IsMotionPlayer() bool
}

// Being holds the execution order derived from a seed set of blocks, a
// clock, and the three role-filtered collections (motors, behaviors,
// motion players). It is constructed once at startup and torn down at
// shutdown.
type Being struct {
	Clock *clock.Clock

	order        []block.Block
	motors       []motor
	behaviors    []behavior
	motionPlayer []motionPlayer

	valueOutputs   []*block.ValueOutput
	messageOutputs []*block.MessageOutput

	// backends are closed, in registration order, by Shutdown. A single
	// bus is the common case, but the slice generalizes to any config
	// that ends up wiring more than one CAN backend.
	backends []io.Closer

	// disconnected is populated by New from the seed-set graph's weakly
	// connected components. More than one component almost always means
	// a block was seeded but never wired to the rest of the network.
	disconnected [][]block.Block

	Logf func(format string, v ...interface{})
}

// New walks every block reachable from seed by following port
// connections, builds the graph, removes back-edges, topologically
// sorts, and filters the three role collections. Logf defaults to a
// no-op if nil.
func New(clk *clock.Clock, seed []block.Block, logf func(string, ...interface{})) (*Being, error) {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}

	g := buildGraph(seed)
	dag := g.RemoveBackEdges()
	order, ok := dag.TopologicalSort()
	if !ok {
		return nil, errCycleSurvivedRemoval
	}

	be := &Being{Clock: clk, Logf: logf}
	for _, v := range order {
		b := v.(block.Block)
		be.order = append(be.order, b)

		if m, ok := b.(motor); ok {
			be.motors = append(be.motors, m)
		}
		if bh, ok := b.(behavior); ok {
			be.behaviors = append(be.behaviors, bh)
		}
		if mp, ok := b.(motionPlayer); ok {
			be.motionPlayer = append(be.motionPlayer, mp)
		}

		if bb, ok := b.(block.Baser); ok {
			be.valueOutputs = append(be.valueOutputs, bb.BlockBase().ValueOutputs()...)
			be.messageOutputs = append(be.messageOutputs, bb.BlockBase().MessageOutputs()...)
		}
	}

	for _, component := range g.ConnectedComponents() {
		blocks := make([]block.Block, len(component))
		for i, v := range component {
			blocks[i] = v.(block.Block)
		}
		be.disconnected = append(be.disconnected, blocks)
	}
	if len(be.disconnected) > 1 {
		logf("being: graph has %d disconnected components; a seed block may be unwired", len(be.disconnected))
	}

	return be, nil
}

// buildGraph performs a breadth-first reachability walk, following each
// block's recorded downstream wiring (block.Base.Downstream) from the
// seed set.
func buildGraph(seed []block.Block) *pgraph.Graph {
	g := pgraph.NewGraph("being")
	visited := make(map[block.Block]bool)
	queue := append([]block.Block(nil), seed...)

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if visited[b] {
			continue
		}
		visited[b] = true
		g.AddVertex(b)

		for _, d := range downstreamOf(b) {
			g.AddEdge(b, d, "")
			if !visited[d] {
				queue = append(queue, d)
			}
		}
	}
	return g
}

func downstreamOf(b block.Block) []block.Block {
	bb, ok := b.(block.Baser)
	if !ok {
		return nil
	}
	return bb.BlockBase().Downstream()
}

// RegisterBackend records a closer to be closed by Shutdown, in
// registration order.
func (be *Being) RegisterBackend(c io.Closer) {
	be.backends = append(be.backends, c)
}

// Order returns the topological execution order.
func (be *Being) Order() []block.Block { return append([]block.Block(nil), be.order...) }

// ValueOutputs returns every block's value output ports, in execution
// order, for the telemetry sampler.
func (be *Being) ValueOutputs() []*block.ValueOutput {
	return append([]*block.ValueOutput(nil), be.valueOutputs...)
}

// MessageOutputs returns every block's message output ports, in
// execution order, for the telemetry sampler.
func (be *Being) MessageOutputs() []*block.MessageOutput {
	return append([]*block.MessageOutput(nil), be.messageOutputs...)
}

// DisconnectedComponents returns the weakly connected components of the
// seed-set graph, for diagnostics. A single-element result means the
// graph is fully connected.
func (be *Being) DisconnectedComponents() [][]block.Block { return be.disconnected }

// SingleCycle runs one tick: execute every block in order, flush/poll the
// CAN backend(s) via network, then advance the clock. network may be nil
// if no CAN backend is wired (eg. a pure-software test graph).
func (be *Being) SingleCycle(network interface{ Update() error }) error {
	for _, b := range be.order {
		if err := b.Update(be.Clock.Cycle()); err != nil {
			return err
		}
	}
	if network != nil {
		if err := network.Update(); err != nil {
			return err
		}
	}
	be.Clock.Step()
	return nil
}

// EnableMotors starts an independent enable state-switch job on every
// motor in the graph.
func (be *Being) EnableMotors() error {
	var result *multierror.Error
	for _, m := range be.motors {
		if err := m.Enable(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// HomeMotors starts an independent homing job on every motor that has a
// default homing driver configured.
func (be *Being) HomeMotors() error {
	var result *multierror.Error
	for _, m := range be.motors {
		if err := m.Home(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Motors returns the motor role collection, in execution order.
func (be *Being) Motors() []block.Block {
	out := make([]block.Block, len(be.motors))
	for i, m := range be.motors {
		out[i] = m
	}
	return out
}

// Behaviors returns the behavior role collection, in execution order.
func (be *Being) Behaviors() []block.Block {
	out := make([]block.Block, len(be.behaviors))
	for i, b := range be.behaviors {
		out[i] = b
	}
	return out
}

// MotionPlayers returns the motionPlayer role collection, in execution
// order.
func (be *Being) MotionPlayers() []block.Block {
	out := make([]block.Block, len(be.motionPlayer))
	for i, m := range be.motionPlayer {
		out[i] = m
	}
	return out
}

// Shutdown closes every registered CAN backend, in registration order,
// aggregating any failures so a caller sees every backend that failed to
// close rather than only the first. In-flight state-switch and homing
// jobs are simply abandoned -- motor enable state is left as-is, no
// forced disable.
func (be *Being) Shutdown() error {
	var result *multierror.Error
	for _, c := range be.backends {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
