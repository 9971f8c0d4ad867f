// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "observable_dispatch"

// Collector is a prometheus.Collector that collects metrics about a
// dispatch scheduler.
type Collector struct {
	submitted prometheus.Counter
	executed  prometheus.Counter
	depth     prometheus.Gauge
	runners   prometheus.Gauge
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		submitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "submitted_total",
				Help:      "The number of units of work submitted to the scheduler.",
			},
		),
		executed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "executed_total",
				Help:      "The number of units of work executed by the scheduler.",
			},
		),
		depth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "queue_depth",
				Help:      "The number of units of work queued but not yet executed.",
			},
		),
		runners: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "runners",
				Help:      "The number of live runner goroutines.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.submitted.Describe(ch)
	c.executed.Describe(ch)
	c.depth.Describe(ch)
	c.runners.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.submitted.Collect(ch)
	c.executed.Collect(ch)
	c.depth.Collect(ch)
	c.runners.Collect(ch)
}
