/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle results for the cycles counter.
const (
	CycleSucceeded = "succeeded"
	CycleFailed    = "failed"
	CycleSkipped   = "skipped"
)

// Metrics is the Prometheus instrumentation for the janitor. One instance
// lives for the process lifetime; per-cycle values are overwritten each run.
type Metrics struct {
	cycles            *prometheus.CounterVec
	outcomes          *prometheus.CounterVec
	lastCycleClusters *prometheus.GaugeVec
	lastCycleDuration prometheus.Gauge
	lastCycleDryRun   prometheus.Gauge
}

// NewMetrics registers the janitor's metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "capijanitor_cycles_total",
			Help: "Cleanup cycles by result (succeeded, failed, skipped).",
		}, []string{"result"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "capijanitor_cluster_outcomes_total",
			Help: "Clusters processed, cumulative, by outcome bucket.",
		}, []string{"bucket"}),
		lastCycleClusters: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "capijanitor_last_cycle_clusters",
			Help: "Clusters in each outcome bucket during the most recent cycle.",
		}, []string{"bucket"}),
		lastCycleDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "capijanitor_last_cycle_duration_seconds",
			Help: "Wall-clock duration of the most recent cycle.",
		}),
		lastCycleDryRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "capijanitor_last_cycle_dry_run",
			Help: "1 when the most recent cycle simulated deletions, 0 otherwise.",
		}),
	}
}

// ObserveCycle publishes one finished run. Buckets absent from the summary
// are explicitly zeroed so the last-cycle gauges always carry a full set.
func (m *Metrics) ObserveCycle(summary RunSummary) {
	result := CycleSucceeded
	if summary.Failed {
		result = CycleFailed
	}
	m.cycles.WithLabelValues(result).Inc()

	for _, bucket := range Buckets {
		count := summary.Count(bucket)
		m.outcomes.WithLabelValues(string(bucket)).Add(float64(count))
		m.lastCycleClusters.WithLabelValues(string(bucket)).Set(float64(count))
	}

	if !summary.FinishedAt.IsZero() {
		m.lastCycleDuration.Set(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	}

	if summary.DryRun {
		m.lastCycleDryRun.Set(1)
	} else {
		m.lastCycleDryRun.Set(0)
	}
}

// ObserveSkipped counts a trigger that was dropped because a run was already
// active.
func (m *Metrics) ObserveSkipped() {
	m.cycles.WithLabelValues(CycleSkipped).Inc()
}
