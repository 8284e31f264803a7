// Package scheduler implements a drift-free fixed-rate tick loop: it
// drives Being.SingleCycle at INTERVAL, samples a telemetry snapshot at
// the slower WEB_INTERVAL cadence, and shuts down cooperatively on
// SIGTERM/SIGINT. It is grounded on lib/run.go's signal-handling
// goroutine (catch ^C / SIGTERM, set an exit flag the main loop observes)
// composed with converger/converger.go's timer-driven cadence idiom,
// adapted into an explicit `deadline = cycle*INTERVAL`,
// sleep-until-deadline loop.
package scheduler

import (
	"sync"
	"time"

	errwrap "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/being-run/being/being"
	"github.com/being-run/being/block"
)

// Updater is the CAN backend's per-tick flush/poll contract; Being.
// SingleCycle calls it after every block has executed. It may be nil for
// a pure-software graph with no CAN backend wired.
type Updater interface {
	Update() error
}

// Sampler receives one telemetry snapshot per WEB_INTERVAL: the
// scheduler's clock timestamp, every value output's current value (in
// execution order), and every message output's queued messages since the
// last sample (drained from a dummy MessageInput the scheduler attaches
// to each output for this purpose alone).
type Sampler interface {
	Sample(timestamp float64, values []float64, messages [][]interface{})
}

// Scheduler drives one Being through its fixed-interval tick loop and an
// independent, slower telemetry sampling cadence, both cooperatively
// multiplexed onto the single goroutine that calls Run -- only the
// sleep-until-deadline wait and (inside Sampler, which owns its own
// goroutine for the broker) a telemetry send are allowed to suspend.
type Scheduler struct {
	Interval    float64
	WebInterval float64
	Being       *being.Being
	Network     Updater
	Sampler     Sampler
	Logf        func(format string, v ...interface{})

	metrics         *metrics
	valueOutputs    []*block.ValueOutput
	telemetryInputs []*block.MessageInput

	now   func() time.Time
	sleep func(time.Duration) <-chan time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// New returns a Scheduler for being, sampling at webInterval seconds (must
// be greater than interval) and flushing network (may be nil) once per
// tick. logf defaults to a no-op if nil.
func New(interval, webInterval float64, be *being.Being, network Updater, sampler Sampler, logf func(string, ...interface{})) *Scheduler {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}

	s := &Scheduler{
		Interval:    interval,
		WebInterval: webInterval,
		Being:       be,
		Network:     network,
		Sampler:     sampler,
		Logf:        logf,
		metrics:     newMetrics(),
		now:         time.Now,
		stop:        make(chan struct{}),
	}
	s.sleep = func(d time.Duration) <-chan time.Time { return time.After(d) }

	s.valueOutputs = be.ValueOutputs()
	for _, out := range be.MessageOutputs() {
		in := &block.MessageInput{Name: "telemetry:" + out.PortName()}
		if err := block.Connect(out, in); err != nil {
			// out is always a *MessageOutput and in a freshly built
			// *MessageInput with no prior subscriber, so Connect
			// cannot fail here.
			logf("scheduler: unexpected telemetry wiring failure on %q: %v", out.PortName(), err)
			continue
		}
		s.telemetryInputs = append(s.telemetryInputs, in)
	}

	return s
}

// Registry exposes the scheduler's own prometheus registry so a metrics
// endpoint can serve tick-duration/catch-up gauges alongside whatever
// else the caller registers.
func (s *Scheduler) Registry() *prometheus.Registry { return s.metrics.registry }

// Stop requests cooperative shutdown; the tick loop observes it on its
// next iteration. Safe to call more than once or concurrently with Run.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Run executes the drift-free tick loop until Stop is called or
// single_cycle returns an error. It never sleeps to make up for a missed
// deadline -- cycle N's deadline is always cycle*INTERVAL seconds after
// Run started, so a stall inside one tick is absorbed by zero-sleep
// catch-up ticks rather than a permanent phase shift.
func (s *Scheduler) Run() error {
	start := s.now()
	var cycle int64
	nextWeb := 0.0

	for {
		select {
		case <-s.stop:
			return nil
		default:
		}

		deadline := float64(cycle) * s.Interval
		target := start.Add(time.Duration(deadline * float64(time.Second)))
		if wait := target.Sub(s.now()); wait > 0 {
			select {
			case <-s.sleep(wait):
			case <-s.stop:
				return nil
			}
		} else if cycle > 0 {
			s.metrics.catchUpTotal.Inc()
		}

		tickStart := s.now()
		if err := s.Being.SingleCycle(s.Network); err != nil {
			return errwrap.Wrapf(err, "scheduler: single_cycle at tick %d", cycle)
		}
		s.metrics.tickDuration.Observe(s.now().Sub(tickStart).Seconds())
		cycle++

		now := s.Being.Clock.Now()
		if now >= nextWeb {
			s.sampleTelemetry(now)
			nextWeb += s.WebInterval
		}
	}
}

func (s *Scheduler) sampleTelemetry(timestamp float64) {
	if s.Sampler == nil {
		return
	}
	values := make([]float64, len(s.valueOutputs))
	for i, vo := range s.valueOutputs {
		values[i] = vo.Get()
	}
	messages := make([][]interface{}, len(s.telemetryInputs))
	for i, in := range s.telemetryInputs {
		messages[i] = in.Receive()
	}
	s.Sampler.Sample(timestamp, values, messages)
}
