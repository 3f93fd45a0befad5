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

// Package run drives complete cleanup cycles.
//
// The Coordinator owns the per-run state machine:
//
//	Idle -> Listing -> Evaluating -> Deleting -> Reporting -> Idle
//
// One cycle takes a frozen snapshot of the clusters (Listing), evaluates
// each against the retention policy (Evaluating - pure, never fails), hands
// the delete-marked clusters to the orchestrator under the cycle deadline
// (Deleting), and publishes the summary to metrics and the log (Reporting).
//
// A listing failure aborts the cycle straight back to Idle: the run is
// recorded as failed, nothing is evaluated, and the next scheduled cycle
// starts from scratch. Changes to cluster state after the snapshot was taken
// are not observed until the next cycle.
//
// At most one run is active at a time. A trigger arriving while a run is in
// progress is dropped, logged as skipped, and counted - never queued.
//
// Start runs cycles forever on a fixed interval until the context is
// canceled, in the spirit of a background scheduler: a failed cycle is
// logged and the loop carries on. RunOnce performs a single cycle, for
// one-shot invocations.
package run
