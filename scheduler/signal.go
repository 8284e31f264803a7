package scheduler

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ListenForSignals installs a SIGTERM/SIGINT handler that calls s.Stop()
// on the first signal received, logging which one, and returns a function
// that stops listening. Grounded on lib/run.go's exit-signal goroutine:
// a buffered signal channel, a dedicated goroutine, and an exit channel
// the goroutine also selects on so it can be torn down without leaking.
func ListenForSignals(s *Scheduler) (cancel func()) {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	exit := make(chan struct{})
	var once sync.Once
	done := make(chan struct{})

	go func() {
		defer close(done)
		select {
		case sig := <-signals:
			s.Logf("scheduler: shutting down on %v", sig)
			s.Stop()
		case <-exit:
		}
	}()

	return func() {
		once.Do(func() { close(exit) })
		signal.Stop(signals)
		<-done
	}
}
