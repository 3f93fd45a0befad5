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

// Package policy decides which clusters the janitor may delete.
//
// The whole package is one pure function, Evaluate, applied per cluster per
// run. It takes an immutable ClusterRef snapshot, the run's RetentionPolicy,
// and the evaluation instant, and returns a Decision. There is no hidden
// state and no I/O: the same inputs always produce the same Decision, which
// is what makes the safety properties of the janitor testable.
//
// The evaluation order is the core safety property and must not be
// rearranged:
//
//  1. Clusters already deleting are skipped (never a second delete).
//  2. Clusters still provisioning inside the grace window are skipped.
//  3. Clusters outside the label selector are kept.
//  4. Protected clusters are kept, even when they match the selector.
//  5. Clusters younger than the minimum age are kept.
//  6. Everything else is deleted.
//
// Protection outranks selector match: a cluster carrying a protected label
// can never be deleted by matching the selector, no matter its age.
package policy
