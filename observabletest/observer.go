// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package observabletest

import (
	"time"

	gc "gopkg.in/check.v1"
)

// Kind discriminates recorded observer events.
type Kind string

const (
	// Next records an OnNext call.
	Next Kind = "next"
	// Failed records an OnError call.
	Failed Kind = "error"
	// Completed records an OnCompleted call.
	Completed Kind = "completed"
)

// Event is one recorded observer call.
type Event struct {
	Kind  Kind
	Value any
	Err   error

	// Goroutine is the id of the goroutine the call was delivered on.
	Goroutine int64
}

// Observer is a recording observable.Observer implementation.
type Observer[T any] struct {
	events chan Event
}

// NewObserver returns an Observer with room to record plenty of
// events without blocking delivery.
func NewObserver[T any]() *Observer[T] {
	return &Observer[T]{
		events: make(chan Event, 128),
	}
}

// OnNext is part of the observable.Observer interface.
func (o *Observer[T]) OnNext(value T) {
	o.events <- Event{Kind: Next, Value: value, Goroutine: GoroutineID()}
}

// OnError is part of the observable.Observer interface.
func (o *Observer[T]) OnError(err error) {
	o.events <- Event{Kind: Failed, Err: err, Goroutine: GoroutineID()}
}

// OnCompleted is part of the observable.Observer interface.
func (o *Observer[T]) OnCompleted() {
	o.events <- Event{Kind: Completed, Goroutine: GoroutineID()}
}

// Events exposes the recorded events as they arrive.
func (o *Observer[T]) Events() <-chan Event {
	return o.events
}

// NextEvent returns the next recorded event, failing the test if none
// arrives within LongWait.
func (o *Observer[T]) NextEvent(c *gc.C) Event {
	select {
	case event := <-o.events:
		return event
	case <-time.After(LongWait):
		c.Fatalf("timed out waiting for observer event")
	}
	return Event{}
}

// NoEvent asserts that no event arrives within ShortWait.
func (o *Observer[T]) NoEvent(c *gc.C) {
	select {
	case event := <-o.events:
		c.Fatalf("unexpected observer event %#v", event)
	case <-time.After(ShortWait):
	}
}
