// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package fault_test

import (
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/juju/pubsub/v2"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/observable/fault"
	"github.com/juju/observable/observabletest"
)

type controllerSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&controllerSuite{})

func (s *controllerSuite) TestConfigValidation(c *gc.C) {
	_, err := fault.NewController(fault.Config{})
	c.Check(err, jc.ErrorIs, errors.NotValid)
}

func (s *controllerSuite) TestCancelAllFirstWins(c *gc.C) {
	var cancelled []error
	controller, err := fault.NewController(fault.Config{
		Cancel: func(err error) { cancelled = append(cancelled, err) },
	})
	c.Assert(err, jc.ErrorIsNil)

	select {
	case <-controller.Faulted():
		c.Fatalf("controller faulted before any report")
	default:
	}
	c.Check(controller.Err(), jc.ErrorIsNil)

	first := errors.New("first failure")
	controller.CancelAll(first)
	controller.CancelAll(errors.New("second failure"))

	c.Assert(cancelled, gc.HasLen, 1)
	c.Check(cancelled[0], gc.Equals, first)
	c.Check(controller.Err(), gc.Equals, first)

	select {
	case <-controller.Faulted():
	default:
		c.Fatalf("Faulted channel not closed after a report")
	}
}

func (s *controllerSuite) TestCancelAllNilError(c *gc.C) {
	var cancelled error
	controller, err := fault.NewController(fault.Config{
		Cancel: func(err error) { cancelled = err },
	})
	c.Assert(err, jc.ErrorIsNil)

	controller.CancelAll(nil)
	c.Assert(cancelled, gc.NotNil)
	c.Check(cancelled, gc.ErrorMatches, "session fault reported with no cause")
}

func (s *controllerSuite) TestConcurrentCancelAll(c *gc.C) {
	var mu sync.Mutex
	var cancelled []error
	controller, err := fault.NewController(fault.Config{
		Cancel: func(err error) {
			mu.Lock()
			cancelled = append(cancelled, err)
			mu.Unlock()
		},
	})
	c.Assert(err, jc.ErrorIsNil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			controller.CancelAll(errors.New("concurrent failure"))
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	c.Assert(cancelled, gc.HasLen, 1)
	c.Check(cancelled[0], gc.Equals, controller.Err())
}

func (s *controllerSuite) TestHubBroadcast(c *gc.C) {
	hub := pubsub.NewSimpleHub(&pubsub.SimpleHubConfig{})
	received := make(chan any, 1)
	unsub := hub.Subscribe(fault.Topic, func(topic string, data interface{}) {
		received <- data
	})
	defer unsub()

	controller, err := fault.NewController(fault.Config{
		Cancel: func(error) {},
		Hub:    hub,
	})
	c.Assert(err, jc.ErrorIsNil)

	boom := errors.New("session broke")
	controller.CancelAll(boom)

	select {
	case data := <-received:
		c.Check(data, gc.Equals, boom)
	case <-time.After(observabletest.LongWait):
		c.Fatalf("fault never broadcast on the hub")
	}
}

func (s *controllerSuite) TestReport(c *gc.C) {
	controller, err := fault.NewController(fault.Config{
		Cancel: func(error) {},
	})
	c.Assert(err, jc.ErrorIsNil)

	c.Check(controller.Report(), jc.DeepEquals, map[string]any{
		"faulted": false,
	})

	controller.CancelAll(errors.New("session broke"))
	c.Check(controller.Report(), jc.DeepEquals, map[string]any{
		"faulted": true,
		"error":   "session broke",
	})
}
