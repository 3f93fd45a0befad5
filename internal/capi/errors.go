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

package capi

import (
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// ErrorKind classifies an API error for retry purposes.
type ErrorKind string

const (
	// ErrorUnavailable covers transient server-side and transport
	// failures: timeouts, 5xx responses, connection errors. Retryable.
	ErrorUnavailable ErrorKind = "Unavailable"

	// ErrorForbidden covers RBAC and authentication failures. Permanent;
	// retrying cannot help until the operator fixes permissions.
	ErrorForbidden ErrorKind = "Forbidden"

	// ErrorNotFound means the resource does not exist. For deletion this
	// is the desired end state, so callers treat it as success.
	ErrorNotFound ErrorKind = "NotFound"

	// ErrorConflict covers optimistic-concurrency conflicts. Retryable.
	ErrorConflict ErrorKind = "Conflict"

	// ErrorRateLimited covers 429 responses. Retryable with backoff.
	ErrorRateLimited ErrorKind = "RateLimited"
)

// Classify maps an error returned by the cluster API onto an ErrorKind.
// Errors that do not match any known status reason are treated as
// Unavailable: the safe default for a flaky transport is to retry with
// backoff rather than to give up.
func Classify(err error) ErrorKind {
	switch {
	case apierrors.IsNotFound(err) || apierrors.IsGone(err):
		return ErrorNotFound
	case apierrors.IsForbidden(err) || apierrors.IsUnauthorized(err):
		return ErrorForbidden
	case apierrors.IsConflict(err):
		return ErrorConflict
	case apierrors.IsTooManyRequests(err):
		return ErrorRateLimited
	default:
		return ErrorUnavailable
	}
}

// Retryable reports whether another attempt against the API can reasonably
// change the outcome. NotFound is not retryable, but it is also not a
// failure - the deletion orchestrator maps it to success before consulting
// this.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorUnavailable, ErrorConflict, ErrorRateLimited:
		return true
	default:
		return false
	}
}
