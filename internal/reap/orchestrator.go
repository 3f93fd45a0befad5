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

package reap

import (
	"context"
	"sync"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/capijanitor/internal/capi"
)

// Outcome is the terminal (or, at deadline, non-terminal) state of one
// deletion attempt sequence.
type Outcome string

const (
	// OutcomePending: no terminal state was reached before the run
	// deadline. The cluster is picked up again next cycle.
	OutcomePending Outcome = "Pending"

	// OutcomeSucceeded: the deletion request was accepted, or the cluster
	// was already gone.
	OutcomeSucceeded Outcome = "Succeeded"

	// OutcomeFailedPermanent: the API rejected the deletion in a way
	// retrying cannot fix (forbidden).
	OutcomeFailedPermanent Outcome = "FailedPermanent"

	// OutcomeFailedExhausted: every attempt failed transiently and the
	// attempt budget ran out.
	OutcomeFailedExhausted Outcome = "FailedExhausted"
)

// Attempt records the result of working one cluster. It lives only for the
// duration of the run; the next cycle starts from a fresh listing.
type Attempt struct {
	// Namespace and Name identify the cluster.
	Namespace string
	Name      string

	// Attempts is how many deletion calls were actually issued.
	Attempts int

	// LastError is the most recent deletion error, nil on success.
	LastError error

	// LastErrorKind classifies LastError when it is set.
	LastErrorKind capi.ErrorKind

	// Outcome is the final state of this attempt sequence.
	Outcome Outcome

	// Simulated marks dry-run outcomes: counted as Succeeded but no API
	// call was made.
	Simulated bool
}

// ID returns the cluster identity in "namespace/name" form.
func (a Attempt) ID() string {
	return a.Namespace + "/" + a.Name
}

// Deleter is the slice of the cluster API the orchestrator needs. The capi
// Clusters interface satisfies it.
type Deleter interface {
	Delete(ctx context.Context, namespace, name string) error
}

// Orchestrator drives the deletion phase of one run: bounded concurrency,
// per-cluster retries, dry-run support.
type Orchestrator struct {
	deleter        Deleter
	retry          RetryConfig
	maxConcurrency int
	sleep          SleepFunc
}

// NewOrchestrator creates an Orchestrator.
//
// Parameters:
//   - deleter: the cluster deletion API
//   - retry: per-cluster retry policy
//   - maxConcurrency: ceiling on simultaneous deletion requests
//
// Returns a configured Orchestrator ready for Run.
func NewOrchestrator(deleter Deleter, retry RetryConfig, maxConcurrency int) *Orchestrator {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Orchestrator{
		deleter:        deleter,
		retry:          retry,
		maxConcurrency: maxConcurrency,
		sleep:          sleepWithContext,
	}
}

// Run deletes the candidate clusters and returns one Attempt per unique
// cluster identity. Candidates are deduped by identity before dispatch, so
// no cluster ever has two concurrent deletion requests within a run.
//
// When ctx is done (run deadline), workers finish the deletion call they are
// in but start no new attempts; unworked and unretried clusters come back as
// Pending.
func (o *Orchestrator) Run(ctx context.Context, candidates []capi.ClusterRef, dryRun bool) []Attempt {
	unique := dedupe(candidates)

	if dryRun {
		return o.simulate(ctx, unique)
	}

	jobs := make(chan capi.ClusterRef)
	results := make(chan Attempt, len(unique))

	workers := o.maxConcurrency
	if workers > len(unique) {
		workers = len(unique)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				results <- o.deleteOne(ctx, ref)
			}
		}()
	}

	for _, ref := range unique {
		jobs <- ref
	}
	close(jobs)
	wg.Wait()
	close(results)

	attempts := make([]Attempt, 0, len(unique))
	for attempt := range results {
		attempts = append(attempts, attempt)
	}
	return attempts
}

// simulate produces a Succeeded-but-simulated attempt for every candidate
// without any API call, or Pending once the run deadline has expired.
// Reports bucket simulated successes with real ones so dry-run counts
// predict real-run counts; the Simulated flag is the only difference.
func (o *Orchestrator) simulate(ctx context.Context, candidates []capi.ClusterRef) []Attempt {
	logger := log.FromContext(ctx)

	attempts := make([]Attempt, 0, len(candidates))
	for _, ref := range candidates {
		// The deadline applies to simulated runs too, so dry-run counts
		// keep predicting real-run counts.
		if ctx.Err() != nil {
			attempts = append(attempts, Attempt{
				Namespace: ref.Namespace,
				Name:      ref.Name,
				Outcome:   OutcomePending,
			})
			continue
		}
		logger.Info("dry run: would delete cluster", "cluster", ref.ID())
		attempts = append(attempts, Attempt{
			Namespace: ref.Namespace,
			Name:      ref.Name,
			Outcome:   OutcomeSucceeded,
			Simulated: true,
		})
	}
	return attempts
}

// deleteOne works a single cluster to a terminal outcome or to the run
// deadline, retrying transient failures with backoff.
func (o *Orchestrator) deleteOne(ctx context.Context, ref capi.ClusterRef) Attempt {
	logger := log.FromContext(ctx).WithValues("cluster", ref.ID())

	attempt := Attempt{
		Namespace: ref.Namespace,
		Name:      ref.Name,
		Outcome:   OutcomePending,
	}

	for try := 1; try <= o.retry.MaxAttempts; try++ {
		// No new attempts after the deadline. Whatever happened so far
		// stays recorded; the outcome remains Pending.
		if ctx.Err() != nil {
			return attempt
		}

		attempt.Attempts = try
		err := o.deleter.Delete(ctx, ref.Namespace, ref.Name)
		if err == nil {
			attempt.Outcome = OutcomeSucceeded
			attempt.LastError = nil
			return attempt
		}

		kind := capi.Classify(err)
		attempt.LastError = err
		attempt.LastErrorKind = kind

		// The cluster being gone already is exactly the state we want.
		if kind == capi.ErrorNotFound {
			attempt.Outcome = OutcomeSucceeded
			attempt.LastError = nil
			return attempt
		}

		if !kind.Retryable() {
			logger.Info("cluster deletion failed permanently", "error", err.Error(), "kind", string(kind))
			attempt.Outcome = OutcomeFailedPermanent
			return attempt
		}

		if try == o.retry.MaxAttempts {
			logger.Info("cluster deletion attempts exhausted", "attempts", try, "error", err.Error())
			attempt.Outcome = OutcomeFailedExhausted
			return attempt
		}

		if sleepErr := o.sleep(ctx, o.retry.Delay(try)); sleepErr != nil {
			// Deadline hit while backing off: no retry is dispatched.
			return attempt
		}
	}

	return attempt
}

// dedupe drops duplicate cluster identities, keeping first occurrence order.
func dedupe(refs []capi.ClusterRef) []capi.ClusterRef {
	seen := make(map[string]struct{}, len(refs))
	unique := make([]capi.ClusterRef, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.ID()]; ok {
			continue
		}
		seen[ref.ID()] = struct{}{}
		unique = append(unique, ref)
	}
	return unique
}
