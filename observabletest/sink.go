// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package observabletest provides scriptable collaborators for testing
// observable bridges: a sink whose notifications are fired from a
// goroutine of the test's choosing, a recording observer that notes
// the goroutine each event was delivered on, and a recording fault
// authority.
package observabletest

import (
	"sync"
	"time"

	"github.com/juju/errors"

	"github.com/juju/observable"
)

// LongWait is the maximum time a test should wait for something that
// is expected to happen.
const LongWait = 10 * time.Second

// ShortWait is long enough for something that should not happen to
// have happened.
const ShortWait = 50 * time.Millisecond

type attachment struct {
	next      func(any)
	fail      func(error)
	completed func()
}

// Sink is a scriptable observable.Sink. Fire methods invoke the
// attached handlers synchronously on the calling goroutine, the way a
// transport would from an I/O goroutine.
type Sink struct {
	mu        sync.Mutex
	sticky    bool
	attachErr error
	attached  map[observable.CallbackID]*attachment
	detached  map[observable.CallbackID]int
}

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{
		attached: make(map[observable.CallbackID]*attachment),
		detached: make(map[observable.CallbackID]int),
	}
}

// NewStickySink returns a Sink whose detach funcs record the detach
// but keep delivering notifications, simulating a registry that tears
// handlers down lazily. Useful for proving that a bridge drops events
// arriving after disposal or after a terminal event on its own.
func NewStickySink() *Sink {
	s := NewSink()
	s.sticky = true
	return s
}

// SetAttachError makes subsequent Attach calls fail with err.
func (s *Sink) SetAttachError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachErr = err
}

// Attach is part of the observable.Sink interface.
func (s *Sink) Attach(id observable.CallbackID, onNext func(any), onError func(error), onCompleted func()) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attachErr != nil {
		return nil, s.attachErr
	}
	if _, ok := s.attached[id]; ok {
		return nil, errors.Errorf("callback %d already attached", id)
	}
	s.attached[id] = &attachment{
		next:      onNext,
		fail:      onError,
		completed: onCompleted,
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.attached[id]; !ok {
			return
		}
		if !s.sticky {
			delete(s.attached, id)
		}
		s.detached[id]++
	}, nil
}

func (s *Sink) handlers(id observable.CallbackID) *attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached[id]
}

// FireNext delivers a raw Next notification for id on the calling
// goroutine. Firing an unattached id does nothing, like a transport
// whose handlers have been detached.
func (s *Sink) FireNext(id observable.CallbackID, value any) {
	if a := s.handlers(id); a != nil {
		a.next(value)
	}
}

// FireError delivers a raw Error notification for id on the calling
// goroutine.
func (s *Sink) FireError(id observable.CallbackID, err error) {
	if a := s.handlers(id); a != nil {
		a.fail(err)
	}
}

// FireCompleted delivers a raw Completed notification for id on the
// calling goroutine.
func (s *Sink) FireCompleted(id observable.CallbackID) {
	if a := s.handlers(id); a != nil {
		a.completed()
	}
}

// Attached reports whether handlers are currently attached for id.
func (s *Sink) Attached(id observable.CallbackID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.attached[id]
	return ok
}

// DetachCount returns how many times the detach func for id has been
// invoked effectively.
func (s *Sink) DetachCount(id observable.CallbackID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached[id]
}
