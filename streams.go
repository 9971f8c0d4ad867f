// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package observable

import (
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("observable")

// StreamsConfig holds the session-wide collaborators shared by every
// bridge created through a Streams value.
type StreamsConfig struct {
	// Sink connects notification handlers to the session's inbound
	// streams.
	Sink Sink

	// Scheduler executes deferred observer calls on pool goroutines.
	Scheduler Scheduler

	// Faults receives every failure captured in the notification path.
	Faults SessionFaults
}

// Validate returns an error if the config is not usable.
func (c StreamsConfig) Validate() error {
	if c.Sink == nil {
		return errors.NotValidf("nil Sink")
	}
	if c.Scheduler == nil {
		return errors.NotValidf("nil Scheduler")
	}
	if c.Faults == nil {
		return errors.NotValidf("nil Faults")
	}
	return nil
}

// Streams creates observable bridges for one duplex session. It holds
// no mutable state of its own and is safe for concurrent use.
type Streams struct {
	sink      Sink
	scheduler Scheduler
	faults    SessionFaults
}

// NewStreams returns a Streams using the given collaborators.
func NewStreams(config StreamsConfig) (*Streams, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Streams{
		sink:      config.Sink,
		scheduler: config.Scheduler,
		faults:    config.Faults,
	}, nil
}

// Subscribe attaches observer to the remote stream identified by id
// and returns a func that detaches it again. Each notification is
// handed to the observer on a pool goroutine, never on the goroutine
// the sink fired it from, in production order for the identifier.
//
// If attaching to the sink fails the failure is reported to the
// session fault authority and an inert func is returned; the error is
// deliberately not surfaced to the caller, which is typically deep in
// protocol continuation code with no way to handle it.
//
// Detaching stops new deliveries being scheduled. Units already queued
// with the scheduler still run.
func Subscribe[T any](s *Streams, id CallbackID, observer Observer[T]) func() {
	b := &bridge[T]{
		id:        id,
		observer:  observer,
		scheduler: s.scheduler,
		faults:    s.faults,
		// The sink may fire callbacks synchronously from inside
		// Attach, so the bridge is live before attaching.
		state: stateAttached,
	}
	detach, err := s.sink.Attach(id, b.next, b.fail, b.complete)
	if err != nil {
		b.fault(errors.Annotatef(err, "attaching stream callbacks for %d", id))
		return func() {}
	}

	b.mu.Lock()
	if b.state == stateAttached {
		b.detach = detach
		b.mu.Unlock()
	} else {
		// A terminal event or a fault got in before Attach returned.
		b.mu.Unlock()
		detach()
	}
	logger.Tracef("stream %d subscribed", id)
	return b.dispose
}

type bridgeState int

const (
	stateUnattached bridgeState = iota
	stateAttached
	stateDetached
	stateFaulted
)

// bridge connects one callback identifier to one downstream observer
// for the duration of one subscription.
type bridge[T any] struct {
	id        CallbackID
	observer  Observer[T]
	scheduler Scheduler
	faults    SessionFaults

	mu     sync.Mutex
	state  bridgeState
	detach func()
}

// next handles a raw Next notification from the sink. It runs on the
// sink's goroutine and must not block; the observer call is deferred
// to the scheduler. The payload is untyped at the sink boundary and is
// narrowed to the observer's element type at the point of delivery, so
// a narrowing failure is treated like any other delivery failure.
func (b *bridge[T]) next(value any) {
	b.schedule(false, func() error {
		elem, ok := value.(T)
		if !ok {
			return errors.Errorf("stream %d: unexpected element of type %T", b.id, value)
		}
		b.observer.OnNext(elem)
		return nil
	})
}

// fail handles a raw Error notification from the sink.
func (b *bridge[T]) fail(err error) {
	b.schedule(true, func() error {
		b.observer.OnError(err)
		return nil
	})
}

// complete handles a raw Completed notification from the sink.
func (b *bridge[T]) complete() {
	b.schedule(true, func() error {
		b.observer.OnCompleted()
		return nil
	})
}

// schedule submits exactly one unit of work performing the deliver
// call. A terminal notification detaches the bridge so that nothing
// further is forwarded for this identifier, even if the sink keeps
// firing. Failures escaping deliver, including observer panics, are
// captured on the pool goroutine and reported as session faults rather
// than crashing the pool.
func (b *bridge[T]) schedule(terminal bool, deliver func() error) {
	b.mu.Lock()
	if b.state != stateAttached {
		b.mu.Unlock()
		return
	}
	var detach func()
	if terminal {
		b.state = stateDetached
		detach = b.detach
		b.detach = nil
	}
	b.mu.Unlock()

	err := b.scheduler.Submit(b.id, func() {
		defer func() {
			if r := recover(); r != nil {
				b.fault(errors.Errorf("stream %d: observer panic: %v", b.id, r))
			}
		}()
		if err := deliver(); err != nil {
			b.fault(errors.Trace(err))
		}
	})
	if err != nil {
		b.fault(errors.Annotatef(err, "redispatching notification for stream %d", b.id))
		return
	}
	if detach != nil {
		detach()
	}
}

// fault reports a captured failure to the session fault authority. A
// failure at this layer means a notification could not be reliably
// delivered, so the shared session channel can no longer be trusted
// and the whole session is cancelled, not just this subscription.
func (b *bridge[T]) fault(err error) {
	b.mu.Lock()
	b.state = stateFaulted
	b.detach = nil
	b.mu.Unlock()
	logger.Errorf("stream %d: %v", b.id, err)
	b.faults.CancelAll(err)
}

// dispose detaches the bridge from the sink. It is safe to call more
// than once and from any goroutine.
func (b *bridge[T]) dispose() {
	b.mu.Lock()
	if b.state != stateAttached {
		b.mu.Unlock()
		return
	}
	b.state = stateDetached
	detach := b.detach
	b.detach = nil
	b.mu.Unlock()
	if detach != nil {
		detach()
	}
	logger.Tracef("stream %d disposed", b.id)
}
