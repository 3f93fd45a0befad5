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

package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/capijanitor/internal/capi"
	"github.com/mikelane/capijanitor/internal/policy"
	"github.com/mikelane/capijanitor/internal/reap"
	"github.com/mikelane/capijanitor/internal/report"
)

// State is the coordinator's position in the run state machine.
type State string

const (
	StateIdle       State = "Idle"
	StateListing    State = "Listing"
	StateEvaluating State = "Evaluating"
	StateDeleting   State = "Deleting"
	StateReporting  State = "Reporting"
)

// ErrRunActive is returned when a trigger arrives while a run is already in
// progress. The trigger is dropped, not queued.
var ErrRunActive = errors.New("cleanup run already active")

// Options configures how the coordinator executes cycles.
type Options struct {
	// DryRun makes every cycle simulate deletions.
	DryRun bool

	// Namespace scopes listings to one namespace; empty means all.
	Namespace string

	// CycleInterval is the pause between cycle starts in daemon mode.
	CycleInterval time.Duration

	// CycleDeadline bounds one whole cycle. Deletions still in flight at
	// the deadline finish their current attempt and are reported Pending.
	// Zero means no deadline.
	CycleDeadline time.Duration
}

// Coordinator drives cleanup cycles. It owns the single-active-run guarantee
// and the run state machine; the heavy lifting is delegated to the injected
// collaborators.
type Coordinator struct {
	clusters capi.Clusters
	policy   policy.RetentionPolicy
	reaper   *reap.Orchestrator
	metrics  *report.Metrics
	opts     Options

	// runMu is held for the full duration of a run; TryLock implements
	// drop-not-queue for overlapping triggers.
	runMu sync.Mutex

	stateMu sync.Mutex
	state   State

	// now is injectable for tests.
	now func() time.Time
}

// New creates a Coordinator.
//
// Parameters:
//   - clusters: the cluster resource API
//   - pol: the retention policy, immutable for the coordinator's lifetime
//   - reaper: the deletion orchestrator
//   - metrics: cycle instrumentation; may be nil in tests
//   - opts: cycle options
//
// Returns a Coordinator in the Idle state.
func New(clusters capi.Clusters, pol policy.RetentionPolicy, reaper *reap.Orchestrator, metrics *report.Metrics, opts Options) *Coordinator {
	return &Coordinator{
		clusters: clusters,
		policy:   pol,
		reaper:   reaper,
		metrics:  metrics,
		opts:     opts,
		state:    StateIdle,
		now:      time.Now,
	}
}

// State returns the coordinator's current position in the run state machine.
func (c *Coordinator) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// defaultCycleInterval backs a Coordinator constructed without an interval.
const defaultCycleInterval = 10 * time.Minute

// Start runs cleanup cycles until the context is canceled: one cycle
// immediately, then one per CycleInterval (falling back to
// defaultCycleInterval when unset). A failed or skipped cycle is logged and
// the loop continues; only context cancellation stops it.
func (c *Coordinator) Start(ctx context.Context) error {
	interval := c.opts.CycleInterval
	if interval <= 0 {
		interval = defaultCycleInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := log.FromContext(ctx)

	c.cycle(ctx, logger)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.cycle(ctx, logger)
		}
	}
}

// cycle wraps RunOnce for the daemon loop: errors are logged, never fatal.
func (c *Coordinator) cycle(ctx context.Context, logger logr.Logger) {
	if _, err := c.RunOnce(ctx); err != nil && !errors.Is(err, ErrRunActive) {
		logger.Error(err, "cleanup cycle failed")
		// Continue to next tick - don't stop the janitor on transient errors
	}
}

// RunOnce executes one full cleanup cycle and returns its summary.
//
// The cycle either completes Listing -> Evaluating -> Deleting -> Reporting,
// or aborts to Idle on a listing failure with the summary marked failed. If
// another run is active the trigger is dropped and ErrRunActive returned.
func (c *Coordinator) RunOnce(ctx context.Context) (report.RunSummary, error) {
	logger := log.FromContext(ctx)

	if !c.runMu.TryLock() {
		logger.Info("cleanup cycle skipped: a run is already active")
		if c.metrics != nil {
			c.metrics.ObserveSkipped()
		}
		return report.RunSummary{}, ErrRunActive
	}
	defer c.runMu.Unlock()
	defer c.setState(StateIdle)

	started := c.now()
	reporter := report.NewReporter(started, c.opts.DryRun)

	runCtx := ctx
	if c.opts.CycleDeadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.opts.CycleDeadline)
		defer cancel()
	}

	// Listing. The snapshot is frozen here; later cluster changes are not
	// observed until the next cycle.
	c.setState(StateListing)
	refs, err := c.clusters.List(runCtx, c.opts.Namespace)
	if err != nil {
		reporter.MarkFailed(err.Error())
		reporter.Finish(c.now())
		summary := reporter.Snapshot()
		c.publish(logger, summary)
		return summary, fmt.Errorf("cleanup cycle aborted: %w", err)
	}

	// Evaluating. Pure and total - this phase cannot fail.
	c.setState(StateEvaluating)
	evalNow := c.now()
	var candidates []capi.ClusterRef
	for _, ref := range refs {
		decision := policy.Evaluate(ref, c.policy, evalNow)
		if decision == policy.DecisionDelete {
			candidates = append(candidates, ref)
			continue
		}
		reporter.RecordDecision(ref.ID(), decision)
	}

	// Deleting.
	c.setState(StateDeleting)
	for _, attempt := range c.reaper.Run(runCtx, candidates, c.opts.DryRun) {
		reporter.RecordAttempt(attempt)
	}

	// Reporting.
	c.setState(StateReporting)
	reporter.Finish(c.now())
	summary := reporter.Snapshot()
	c.publish(logger, summary)

	return summary, nil
}

// publish pushes the summary to metrics and writes the structured cycle log
// line operators act on.
func (c *Coordinator) publish(logger logr.Logger, summary report.RunSummary) {
	if c.metrics != nil {
		c.metrics.ObserveCycle(summary)
	}

	if summary.Failed {
		logger.Info("cleanup cycle failed",
			"reason", summary.FailureReason,
			"duration", summary.FinishedAt.Sub(summary.StartedAt).String(),
		)
		return
	}

	logger.Info("cleanup cycle complete",
		"dryRun", summary.DryRun,
		"total", summary.Total(),
		"kept", summary.Count(report.BucketKept),
		"deleted", summary.Count(report.BucketDeleted),
		"skippedProtected", summary.Count(report.BucketSkippedProtected),
		"skippedTransient", summary.Count(report.BucketSkippedTransient),
		"failedPermanent", summary.Count(report.BucketFailedPermanent),
		"failedExhausted", summary.Count(report.BucketFailedExhausted),
		"pending", summary.Count(report.BucketPending),
		"deletedClusters", summary.Clusters[report.BucketDeleted],
		"failedClusters", append(append([]string(nil),
			summary.Clusters[report.BucketFailedPermanent]...),
			summary.Clusters[report.BucketFailedExhausted]...),
		"errors", summary.Errors,
		"duration", summary.FinishedAt.Sub(summary.StartedAt).String(),
	)
}
