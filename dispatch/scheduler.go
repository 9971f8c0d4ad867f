// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package dispatch provides the shared scheduler that runs deferred
// notification deliveries on pool goroutines. Submission never blocks,
// units submitted under the same key run in submission order, and keys
// are drained independently of each other, so one slow or blocking
// delivery cannot hold up any other stream.
package dispatch

import (
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/deque"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"gopkg.in/tomb.v2"
)

var logger = loggo.GetLogger("observable.dispatch")

// ErrStopped is returned by Submit after the scheduler has been
// killed.
const ErrStopped = errors.ConstError("dispatch scheduler stopped")

const defaultIdleTimeout = time.Minute

// Config holds the dependencies and knobs for a Scheduler.
type Config struct {
	// Clock times out idle runners.
	Clock clock.Clock

	// IdleTimeout is how long a runner with an empty queue waits for
	// more work before exiting. Zero means a sensible default.
	IdleTimeout time.Duration

	// Metrics, if set, is updated as units flow through the scheduler.
	Metrics *Collector
}

// Validate returns an error if the config is not usable.
func (c Config) Validate() error {
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if c.IdleTimeout < 0 {
		return errors.NotValidf("negative IdleTimeout")
	}
	return nil
}

// Scheduler runs submitted units of work on pool goroutines. Each key
// with pending work has its own runner goroutine draining a FIFO
// queue, which is what preserves submission order per key while
// keeping Submit non-blocking. Runners are created on demand and exit
// again after sitting idle, so an unbounded key space does not leak
// goroutines.
//
// Scheduler is a worker.Worker. Killing it stops new submissions;
// already-queued units are still drained before Wait returns.
//
// Units must not panic. The observable bridge recovers observer
// failures before they reach the runner; other callers must do the
// same.
type Scheduler[K comparable] struct {
	tomb tomb.Tomb

	clock   clock.Clock
	idle    time.Duration
	metrics *Collector

	// dying is closed after stopped has been set, so a runner woken by
	// it can trust that its queue will not grow again.
	dying chan struct{}

	mu      sync.Mutex
	runners map[K]*runner[K]
	stopped bool
}

// runner holds the pending queue for one key. The queue and the map of
// runners are guarded by the scheduler mutex; the data channel carries
// a single wake-up token since the runner always drains the whole
// queue when woken.
type runner[K comparable] struct {
	key     K
	pending *deque.Deque
	data    chan struct{}
}

// NewScheduler returns a running Scheduler.
func NewScheduler[K comparable](config Config) (*Scheduler[K], error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	idle := config.IdleTimeout
	if idle == 0 {
		idle = defaultIdleTimeout
	}
	s := &Scheduler[K]{
		clock:   config.Clock,
		idle:    idle,
		metrics: config.Metrics,
		dying:   make(chan struct{}),
		runners: make(map[K]*runner[K]),
	}
	s.tomb.Go(s.loop)
	return s, nil
}

// Kill is part of the worker.Worker interface.
func (s *Scheduler[K]) Kill() {
	s.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (s *Scheduler[K]) Wait() error {
	return s.tomb.Wait()
}

// loop keeps the tomb alive until the scheduler is killed, then closes
// submissions. Runner goroutines are also registered with the tomb, so
// Wait returns only once they have all drained and exited.
func (s *Scheduler[K]) loop() error {
	<-s.tomb.Dying()
	// Taking the mutex here also orders this write after any Submit
	// currently registering a runner goroutine, keeping tomb.Go calls
	// strictly before the tomb can go dead.
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	close(s.dying)
	return tomb.ErrDying
}

// Submit queues work under key and returns without blocking. Units
// submitted under one key run in submission order on a pool goroutine;
// units under different keys may run concurrently.
func (s *Scheduler[K]) Submit(key K, work func()) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	r, ok := s.runners[key]
	if !ok {
		r = &runner[K]{
			key:     key,
			pending: deque.New(),
			data:    make(chan struct{}, 1),
		}
		s.runners[key] = r
		s.tomb.Go(func() error {
			s.run(r)
			return nil
		})
		if s.metrics != nil {
			s.metrics.runners.Inc()
		}
	}
	r.pending.PushBack(work)
	s.mu.Unlock()

	select {
	case r.data <- struct{}{}:
	default:
	}
	if s.metrics != nil {
		s.metrics.submitted.Inc()
		s.metrics.depth.Inc()
	}
	return nil
}

// run drains the pending queue for one key until the runner has been
// idle for the configured timeout or the scheduler is dying.
func (s *Scheduler[K]) run(r *runner[K]) {
	idle := s.clock.NewTimer(s.idle)
	defer idle.Stop()
	for {
		select {
		case <-r.data:
		case <-s.dying:
			// Submissions have already been stopped, so the queue
			// cannot grow again; drain what is left and exit.
			s.drain(r)
			s.remove(r)
			return
		case <-idle.Chan():
			s.mu.Lock()
			if r.pending.Len() == 0 {
				delete(s.runners, r.key)
				s.mu.Unlock()
				if s.metrics != nil {
					s.metrics.runners.Dec()
				}
				logger.Tracef("reaped idle runner for key %v", r.key)
				return
			}
			s.mu.Unlock()
		}
		s.drain(r)
		idle.Reset(s.idle)
	}
}

func (s *Scheduler[K]) remove(r *runner[K]) {
	s.mu.Lock()
	delete(s.runners, r.key)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.runners.Dec()
	}
}

// drain runs queued units in submission order until the queue is
// empty.
func (s *Scheduler[K]) drain(r *runner[K]) {
	for {
		s.mu.Lock()
		val, ok := r.pending.PopFront()
		s.mu.Unlock()
		if !ok {
			return
		}
		val.(func())()
		if s.metrics != nil {
			s.metrics.executed.Inc()
			s.metrics.depth.Dec()
		}
	}
}

// Report returns a summary of the scheduler state for the engine
// report.
func (s *Scheduler[K]) Report() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := 0
	for _, r := range s.runners {
		pending += r.pending.Len()
	}
	return map[string]any{
		"runners": len(s.runners),
		"pending": pending,
		"stopped": s.stopped,
	}
}
