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
	"sort"
	"sync"
	"time"

	"github.com/mikelane/capijanitor/internal/policy"
	"github.com/mikelane/capijanitor/internal/reap"
)

// Bucket names one slot of a run summary. Every cluster the run saw lands in
// exactly one bucket.
type Bucket string

const (
	BucketKept             Bucket = "kept"
	BucketDeleted          Bucket = "deleted"
	BucketSkippedProtected Bucket = "skipped_protected"
	BucketSkippedTransient Bucket = "skipped_transient"
	BucketFailedPermanent  Bucket = "failed_permanent"
	BucketFailedExhausted  Bucket = "failed_exhausted"
	BucketPending          Bucket = "pending"
)

// Buckets lists every bucket in stable order, for metrics and summary logs.
var Buckets = []Bucket{
	BucketKept,
	BucketDeleted,
	BucketSkippedProtected,
	BucketSkippedTransient,
	BucketFailedPermanent,
	BucketFailedExhausted,
	BucketPending,
}

// RunSummary is the aggregated outcome of one run. It is a value: Snapshot
// returns a deep copy, so holding a summary never races with further
// recording.
type RunSummary struct {
	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time

	// DryRun marks runs whose deletions were simulated. Simulated
	// deletions count in the deleted bucket like real ones; this flag is
	// the only difference.
	DryRun bool

	// Failed marks a cycle that aborted before evaluating anything
	// (listing failure). FailureReason carries the error text.
	Failed        bool
	FailureReason string

	// Clusters holds the cluster identities per bucket, sorted.
	Clusters map[Bucket][]string

	// Errors maps failed/pending cluster identities to the kind of their
	// last deletion error, for operator triage.
	Errors map[string]string
}

// Count returns the number of clusters in one bucket.
func (s RunSummary) Count(b Bucket) int {
	return len(s.Clusters[b])
}

// Total returns the number of clusters the run saw.
func (s RunSummary) Total() int {
	total := 0
	for _, b := range Buckets {
		total += len(s.Clusters[b])
	}
	return total
}

// Reporter accumulates outcomes for a single run. All methods are safe for
// concurrent use; the deletion workers are the writers, and Snapshot may be
// called at any point during the run.
type Reporter struct {
	mu      sync.Mutex
	summary RunSummary
}

// NewReporter creates an empty Reporter for one run.
func NewReporter(startedAt time.Time, dryRun bool) *Reporter {
	return &Reporter{
		summary: RunSummary{
			StartedAt: startedAt,
			DryRun:    dryRun,
			Clusters:  make(map[Bucket][]string),
			Errors:    make(map[string]string),
		},
	}
}

// RecordDecision buckets a non-delete decision. Delete decisions are not
// recorded here: their fate is decided by the orchestrator and arrives via
// RecordAttempt.
func (r *Reporter) RecordDecision(clusterID string, decision policy.Decision) {
	var bucket Bucket
	switch decision {
	case policy.DecisionKeep:
		bucket = BucketKept
	case policy.DecisionSkipProtected:
		bucket = BucketSkippedProtected
	case policy.DecisionSkipTransient:
		bucket = BucketSkippedTransient
	default:
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Clusters[bucket] = append(r.summary.Clusters[bucket], clusterID)
}

// RecordAttempt buckets a deletion attempt outcome and keeps the last error
// kind for failed and pending clusters.
func (r *Reporter) RecordAttempt(attempt reap.Attempt) {
	var bucket Bucket
	switch attempt.Outcome {
	case reap.OutcomeSucceeded:
		bucket = BucketDeleted
	case reap.OutcomeFailedPermanent:
		bucket = BucketFailedPermanent
	case reap.OutcomeFailedExhausted:
		bucket = BucketFailedExhausted
	case reap.OutcomePending:
		bucket = BucketPending
	default:
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Clusters[bucket] = append(r.summary.Clusters[bucket], attempt.ID())
	if attempt.LastError != nil {
		r.summary.Errors[attempt.ID()] = string(attempt.LastErrorKind)
	}
}

// MarkFailed records a cycle-level failure (listing aborted the run).
func (r *Reporter) MarkFailed(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Failed = true
	r.summary.FailureReason = reason
}

// Finish stamps the end of the run.
func (r *Reporter) Finish(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.FinishedAt = at
}

// Snapshot returns a deep copy of the accumulated summary with sorted
// identity lists. Safe to call concurrently with recording.
func (r *Reporter) Snapshot() RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.summary
	out.Clusters = make(map[Bucket][]string, len(r.summary.Clusters))
	for bucket, ids := range r.summary.Clusters {
		copied := append([]string(nil), ids...)
		sort.Strings(copied)
		out.Clusters[bucket] = copied
	}
	out.Errors = make(map[string]string, len(r.summary.Errors))
	for id, kind := range r.summary.Errors {
		out.Errors[id] = kind
	}
	return out
}
