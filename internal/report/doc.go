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

// Package report collects and exposes the outcomes of janitor runs.
//
// Three pieces:
//
//   - Reporter, a mutex-guarded accumulator for one run. Deletion workers
//     record outcomes concurrently; Snapshot can be read at any time, also
//     concurrently with recording. One Reporter per run, never shared across
//     runs.
//
//   - Metrics, the Prometheus instrumentation: cumulative counters per
//     outcome bucket, last-cycle gauges, cycle result counter, and a dry-run
//     marker so operators can tell simulated deletion counts from real ones.
//
//   - Server, the pull-based exporter surface: /metrics for scraping and
//     /healthz for liveness, with graceful shutdown on context cancellation.
package report
