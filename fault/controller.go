// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package fault provides the session-wide fault authority for a duplex
// session. Every failure in the notification path converges here; the
// session has no finer-grained unit of recovery than itself, so the
// only remedy on offer is cancelling all communication. A partially
// broken session silently losing data is considered more dangerous
// than a fully stopped one.
package fault

import (
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/pubsub/v2"
)

var logger = loggo.GetLogger("observable.fault")

// Topic is the pubsub topic on which the controller broadcasts the
// captured fault, so other session components can observe teardown.
// The published data is the error itself.
const Topic = "session.fault"

// Config holds the dependencies for a Controller.
type Config struct {
	// Cancel tears down all communication for the session. It is
	// called at most once, from the goroutine that reported the first
	// fault.
	Cancel func(error)

	// Hub, if set, receives the captured fault on Topic.
	Hub *pubsub.SimpleHub
}

// Validate returns an error if the config is not usable.
func (c Config) Validate() error {
	if c.Cancel == nil {
		return errors.NotValidf("nil Cancel")
	}
	return nil
}

// Controller records the first fault reported for a session and
// cancels the session's communication in response. It is safe for
// concurrent use by any number of bridges; calls after the first are
// no-ops.
type Controller struct {
	cancel func(error)
	hub    *pubsub.SimpleHub

	mu      sync.Mutex
	tripped bool
	err     error
	faulted chan struct{}
}

// NewController returns a Controller using the given config.
func NewController(config Config) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Controller{
		cancel:  config.Cancel,
		hub:     config.Hub,
		faulted: make(chan struct{}),
	}, nil
}

// CancelAll cancels all communication for the session, recording err
// as the cause. The first call wins; subsequent calls return without
// doing anything. Safe to call from any goroutine, including pool
// goroutines mid-delivery.
func (c *Controller) CancelAll(err error) {
	if err == nil {
		err = errors.New("session fault reported with no cause")
	}
	c.mu.Lock()
	if c.tripped {
		c.mu.Unlock()
		return
	}
	c.tripped = true
	c.err = err
	close(c.faulted)
	c.mu.Unlock()

	logger.Errorf("cancelling all session communication: %v", err)
	if c.hub != nil {
		_ = c.hub.Publish(Topic, err)
	}
	c.cancel(err)
}

// Faulted returns a channel that is closed once a fault has been
// recorded.
func (c *Controller) Faulted() <-chan struct{} {
	return c.faulted
}

// Err returns the recorded fault, or nil if none has been reported.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Report returns a summary of the controller state for the engine
// report.
func (c *Controller) Report() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	report := map[string]any{
		"faulted": c.tripped,
	}
	if c.err != nil {
		report["error"] = c.err.Error()
	}
	return report
}
