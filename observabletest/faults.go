// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package observabletest

import (
	"sync"
	"time"

	gc "gopkg.in/check.v1"
)

// Faults is a recording observable.SessionFaults implementation. It
// records every report rather than just the first, so tests can assert
// exactly how many faults a scenario produced.
type Faults struct {
	mu     sync.Mutex
	faults []error
	signal chan error
}

// NewFaults returns an empty Faults.
func NewFaults() *Faults {
	return &Faults{
		signal: make(chan error, 16),
	}
}

// CancelAll is part of the observable.SessionFaults interface.
func (f *Faults) CancelAll(err error) {
	f.mu.Lock()
	f.faults = append(f.faults, err)
	f.mu.Unlock()
	f.signal <- err
}

// Faults returns a copy of the recorded fault reports.
func (f *Faults) Faults() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.faults...)
}

// WaitFault returns the next reported fault, failing the test if none
// arrives within LongWait.
func (f *Faults) WaitFault(c *gc.C) error {
	select {
	case err := <-f.signal:
		return err
	case <-time.After(LongWait):
		c.Fatalf("timed out waiting for session fault")
	}
	return nil
}

// NoFault asserts that no fault is reported within ShortWait.
func (f *Faults) NoFault(c *gc.C) {
	select {
	case err := <-f.signal:
		c.Fatalf("unexpected session fault: %v", err)
	case <-time.After(ShortWait):
	}
}
