package telemetry

import "fmt"

// semaphore is a counting semaphore bounding how many websocket clients
// Broker serves concurrently, adapted from pkgsrc_keep/semaphore.go's
// Semaphore (channel-as-counter plus a close signal so blocked acquirers
// unblock on shutdown instead of leaking).
type semaphore struct {
	c      chan struct{}
	closed chan struct{}
}

func newSemaphore(size int) *semaphore {
	return &semaphore{c: make(chan struct{}, size), closed: make(chan struct{})}
}

// acquire reserves one slot, or returns an error if the semaphore has
// been closed while waiting.
func (s *semaphore) acquire() error {
	select {
	case s.c <- struct{}{}:
		return nil
	case <-s.closed:
		return fmt.Errorf("telemetry: broker closed")
	}
}

// tryAcquire reserves one slot without blocking, reporting whether it
// succeeded -- used to reject a new websocket connection once the
// configured client limit is reached instead of queuing it. It always
// fails once the semaphore has been closed.
func (s *semaphore) tryAcquire() bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.c <- struct{}{}:
		return true
	default:
		return false
	}
}

// release frees one slot.
func (s *semaphore) release() {
	<-s.c
}

// close unblocks every acquirer waiting in acquire.
func (s *semaphore) close() {
	close(s.closed)
}
