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
	"math/rand"
	"time"
)

// RetryConfig defines the retry behavior for deletion attempts.
type RetryConfig struct {
	// MaxAttempts is the total number of deletion attempts per cluster,
	// including the first one.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration

	// Factor is the exponential growth factor between retries.
	Factor float64

	// Jitter is the random fraction applied around each delay, e.g. 0.2
	// for +/-20%. Zero disables jitter (useful in tests).
	Jitter float64
}

// DefaultRetryConfig matches the configuration defaults: three attempts,
// half-second base, 30s cap, doubling with 20% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Factor:      2.0,
		Jitter:      0.2,
	}
}

// Delay computes the backoff before retry number retries (1-indexed: retry 1
// follows the first failed attempt). The delay grows exponentially from
// BaseDelay by Factor, gets jittered, and is capped at MaxDelay.
func (c RetryConfig) Delay(retries int) time.Duration {
	base := float64(c.BaseDelay)
	for i := 1; i < retries; i++ {
		base *= c.Factor
	}

	if c.Jitter > 0 {
		// Spread delays by +/-Jitter so parallel workers do not retry
		// in lockstep against a rate-limited server.
		spread := (rand.Float64()*2 - 1) * c.Jitter
		base *= 1 + spread
	}

	delay := time.Duration(base)
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// SleepFunc waits for the given duration or until the context is done,
// whichever comes first. Injected so tests can exercise the retry ladder
// without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepWithContext is the production SleepFunc.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
