// Package metrics exports generator counters to Prometheus.
//
// The generator keeps its own lock-free counters; Collector reads a snapshot on
// every scrape and reports it as const metrics, so generation never touches the
// Prometheus client.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sxyafiq/sequence"
)

// Source is anything exposing generator counters, typically *sequence.Generator.
type Source interface {
	Metrics() sequence.Metrics
	NodeID() int64
}

// Collector implements prometheus.Collector for one or more generators.
type Collector struct {
	sources []Source

	generated        *prometheus.Desc
	clockRollback    *prometheus.Desc
	clockRollbackErr *prometheus.Desc
	sequenceOverflow *prometheus.Desc
	waitSeconds      *prometheus.Desc
}

// NewCollector creates a collector for the given generators. Metric names are
// prefixed with namespace (e.g. "sequence_ids_generated_total").
func NewCollector(namespace string, sources ...Source) *Collector {
	labels := []string{"node"}
	name := func(n string) string { return prometheus.BuildFQName(namespace, "", n) }

	return &Collector{
		sources: sources,
		generated: prometheus.NewDesc(name("ids_generated_total"),
			"Total number of IDs issued.", labels, nil),
		clockRollback: prometheus.NewDesc(name("clock_rollback_total"),
			"Backwards clock readings observed, recovered or not.", labels, nil),
		clockRollbackErr: prometheus.NewDesc(name("clock_rollback_errors_total"),
			"Clock rollbacks that failed ID generation.", labels, nil),
		sequenceOverflow: prometheus.NewDesc(name("sequence_overflow_total"),
			"Sequence exhaustions that waited for the next millisecond.", labels, nil),
		waitSeconds: prometheus.NewDesc(name("wait_seconds_total"),
			"Time spent waiting on the clock.", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.generated
	ch <- c.clockRollback
	ch <- c.clockRollbackErr
	ch <- c.sequenceOverflow
	ch <- c.waitSeconds
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, src := range c.sources {
		m := src.Metrics()
		node := strconv.FormatInt(src.NodeID(), 10)

		ch <- prometheus.MustNewConstMetric(c.generated, prometheus.CounterValue, float64(m.Generated), node)
		ch <- prometheus.MustNewConstMetric(c.clockRollback, prometheus.CounterValue, float64(m.ClockRollback), node)
		ch <- prometheus.MustNewConstMetric(c.clockRollbackErr, prometheus.CounterValue, float64(m.ClockRollbackErr), node)
		ch <- prometheus.MustNewConstMetric(c.sequenceOverflow, prometheus.CounterValue, float64(m.SequenceOverflow), node)
		ch <- prometheus.MustNewConstMetric(c.waitSeconds, prometheus.CounterValue, float64(m.WaitTimeUs)/1e6, node)
	}
}

// Healthy reports whether rollback failures stay at or below maxRollbackErrors
// for every source.
func (c *Collector) Healthy(maxRollbackErrors int64) bool {
	for _, src := range c.sources {
		if src.Metrics().ClockRollbackErr > maxRollbackErrors {
			return false
		}
	}
	return true
}
