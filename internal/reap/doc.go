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

// Package reap drives cluster deletions for one run.
//
// The Orchestrator takes the delete-marked clusters of a run and works
// through them with a bounded pool of workers. Each cluster gets at most one
// worker at a time (candidates are deduped by identity before dispatch), and
// each deletion is retried with jittered exponential backoff when the API
// error is transient.
//
// Error handling follows the capi taxonomy:
//   - NotFound is success: the cluster is already gone, which is the goal.
//   - Forbidden is a permanent failure; retrying cannot help.
//   - Conflict, rate limiting, and server unavailability retry with backoff
//     up to MaxAttempts, then surface as FailedExhausted.
//
// Cancellation is cooperative. When the run deadline expires, in-flight
// deletion calls finish their current attempt but no new attempts or retries
// are dispatched; clusters without a terminal outcome are reported as
// Pending and will be re-listed and re-evaluated next cycle. The engine
// therefore provides at-least-once, not exactly-once, deletion per cluster
// per cycle.
//
// Dry-run mode produces a Succeeded attempt for every candidate without
// touching the API; those attempts carry Simulated=true so reports can keep
// real and simulated deletions apart.
//
// Sleeping between retries goes through an injectable SleepFunc so tests can
// run the full retry ladder without real delays.
package reap
