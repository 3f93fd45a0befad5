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

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/mikelane/capijanitor/internal/policy"
	"github.com/mikelane/capijanitor/internal/reap"
	"github.com/mikelane/capijanitor/internal/run"
)

// ErrInvalid is wrapped by every validation failure. Configuration errors
// are fatal at startup, before any run.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full set of recognized options.
type Config struct {
	// LabelSelector selects the clusters the janitor manages. Required.
	LabelSelector string

	// MinimumAge is how old a matching cluster must be before deletion.
	MinimumAge time.Duration

	// GraceWindow shields young provisioning clusters.
	GraceWindow time.Duration

	// ProtectedLabels force-keep clusters carrying these exact pairs.
	ProtectedLabels map[string]string

	// DryRun simulates deletions.
	DryRun bool

	// MaxConcurrency caps simultaneous deletion requests.
	MaxConcurrency int

	// MaxAttempts is the total deletion attempts per cluster.
	MaxAttempts int

	// BackoffBase and BackoffCap shape the retry backoff.
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// CycleInterval is the pause between cycles in daemon mode.
	CycleInterval time.Duration

	// CycleDeadline bounds one whole cycle; zero disables it.
	CycleDeadline time.Duration

	// Namespace scopes the run to one namespace; empty means all.
	Namespace string

	// ListenAddr is the metrics server bind address.
	ListenAddr string
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		MinimumAge:      24 * time.Hour,
		GraceWindow:     10 * time.Minute,
		ProtectedLabels: map[string]string{},
		MaxConcurrency:  5,
		MaxAttempts:     3,
		BackoffBase:     500 * time.Millisecond,
		BackoffCap:      30 * time.Second,
		CycleInterval:   10 * time.Minute,
		CycleDeadline:   5 * time.Minute,
		ListenAddr:      ":8080",
	}
}

// envPrefix namespaces the environment fallbacks for every option.
const envPrefix = "CAPIJANITOR_"

// LoadEnv overrides the receiver's values from CAPIJANITOR_* environment
// variables. Call it before RegisterFlags so that an explicit flag still
// wins over the environment. Unparsable values wrap ErrInvalid.
func (c *Config) LoadEnv() error {
	var err error
	set := func(key string, apply func(string) error) {
		if err != nil {
			return
		}
		value, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			return
		}
		if applyErr := apply(value); applyErr != nil {
			err = fmt.Errorf("%w: %s%s %q: %v", ErrInvalid, envPrefix, key, value, applyErr)
		}
	}
	setString := func(key string, dst *string) {
		set(key, func(v string) error {
			*dst = v
			return nil
		})
	}
	setDuration := func(key string, dst *time.Duration) {
		set(key, func(v string) error {
			d, parseErr := time.ParseDuration(v)
			if parseErr != nil {
				return parseErr
			}
			*dst = d
			return nil
		})
	}
	setInt := func(key string, dst *int) {
		set(key, func(v string) error {
			n, parseErr := strconv.Atoi(v)
			if parseErr != nil {
				return parseErr
			}
			*dst = n
			return nil
		})
	}
	setBool := func(key string, dst *bool) {
		set(key, func(v string) error {
			b, parseErr := strconv.ParseBool(v)
			if parseErr != nil {
				return parseErr
			}
			*dst = b
			return nil
		})
	}

	setString("LABEL_SELECTOR", &c.LabelSelector)
	setDuration("MINIMUM_AGE", &c.MinimumAge)
	setDuration("GRACE_WINDOW", &c.GraceWindow)
	set("PROTECTED_LABELS", func(v string) error {
		// Comma-separated key=value pairs, mirroring --protected-label.
		parsed := make(map[string]string)
		for _, pair := range strings.Split(v, ",") {
			key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok || key == "" {
				return fmt.Errorf("expected key=value, got %q", pair)
			}
			parsed[key] = value
		}
		c.ProtectedLabels = parsed
		return nil
	})
	setBool("DRY_RUN", &c.DryRun)
	setInt("MAX_CONCURRENCY", &c.MaxConcurrency)
	setInt("MAX_ATTEMPTS", &c.MaxAttempts)
	setDuration("BACKOFF_BASE", &c.BackoffBase)
	setDuration("BACKOFF_CAP", &c.BackoffCap)
	setDuration("CYCLE_INTERVAL", &c.CycleInterval)
	setDuration("CYCLE_DEADLINE", &c.CycleDeadline)
	setString("NAMESPACE", &c.Namespace)
	setString("LISTEN_ADDR", &c.ListenAddr)

	return err
}

// RegisterFlags binds every option onto the flag set, with the receiver's
// current values as defaults.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.LabelSelector, "label-selector", c.LabelSelector,
		"Label selector for clusters the janitor may delete (required)")
	fs.DurationVar(&c.MinimumAge, "minimum-age", c.MinimumAge,
		"Minimum age before a matching cluster becomes eligible for deletion")
	fs.DurationVar(&c.GraceWindow, "grace-window", c.GraceWindow,
		"Grace period for clusters that are still provisioning")
	fs.StringToStringVar(&c.ProtectedLabels, "protected-label", c.ProtectedLabels,
		"Label key=value pair that always protects a cluster (repeatable)")
	fs.BoolVar(&c.DryRun, "dry-run", c.DryRun,
		"Report what would be deleted without issuing deletions")
	fs.IntVar(&c.MaxConcurrency, "max-concurrency", c.MaxConcurrency,
		"Maximum concurrent deletion requests")
	fs.IntVar(&c.MaxAttempts, "max-attempts", c.MaxAttempts,
		"Deletion attempts per cluster before giving up")
	fs.DurationVar(&c.BackoffBase, "backoff-base", c.BackoffBase,
		"Base delay before the first deletion retry")
	fs.DurationVar(&c.BackoffCap, "backoff-cap", c.BackoffCap,
		"Upper bound on the deletion retry delay")
	fs.DurationVar(&c.CycleInterval, "cycle-interval", c.CycleInterval,
		"Interval between cleanup cycles in daemon mode")
	fs.DurationVar(&c.CycleDeadline, "cycle-deadline", c.CycleDeadline,
		"Wall-clock deadline for one cleanup cycle (0 disables)")
	fs.StringVar(&c.Namespace, "namespace", c.Namespace,
		"Restrict the janitor to one namespace (default: all namespaces)")
	fs.StringVar(&c.ListenAddr, "listen-addr", c.ListenAddr,
		"Bind address for the metrics endpoint")
}

// Validate checks the configuration before the first run. Every failure
// wraps ErrInvalid.
func (c *Config) Validate() error {
	if c.LabelSelector == "" {
		return fmt.Errorf("%w: label-selector is required", ErrInvalid)
	}
	if _, err := labels.Parse(c.LabelSelector); err != nil {
		return fmt.Errorf("%w: label-selector %q: %v", ErrInvalid, c.LabelSelector, err)
	}
	if c.MinimumAge < 0 {
		return fmt.Errorf("%w: minimum-age must not be negative", ErrInvalid)
	}
	if c.GraceWindow < 0 {
		return fmt.Errorf("%w: grace-window must not be negative", ErrInvalid)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("%w: max-concurrency must be at least 1", ErrInvalid)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max-attempts must be at least 1", ErrInvalid)
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("%w: backoff-base must be positive", ErrInvalid)
	}
	if c.BackoffCap < c.BackoffBase {
		return fmt.Errorf("%w: backoff-cap must be at least backoff-base", ErrInvalid)
	}
	if c.CycleInterval <= 0 {
		return fmt.Errorf("%w: cycle-interval must be positive", ErrInvalid)
	}
	if c.CycleDeadline < 0 {
		return fmt.Errorf("%w: cycle-deadline must not be negative", ErrInvalid)
	}
	return nil
}

// Policy translates the configuration into the engine's retention policy.
// Call Validate first; a selector that fails to parse here is a programming
// error.
func (c *Config) Policy() (policy.RetentionPolicy, error) {
	selector, err := labels.Parse(c.LabelSelector)
	if err != nil {
		return policy.RetentionPolicy{}, fmt.Errorf("%w: label-selector %q: %v", ErrInvalid, c.LabelSelector, err)
	}

	protected := make(map[string]string, len(c.ProtectedLabels))
	for k, v := range c.ProtectedLabels {
		protected[k] = v
	}

	return policy.RetentionPolicy{
		Selector:        selector,
		MinimumAge:      c.MinimumAge,
		GraceWindow:     c.GraceWindow,
		ProtectedLabels: protected,
	}, nil
}

// Retry translates the configuration into the orchestrator's retry policy.
func (c *Config) Retry() reap.RetryConfig {
	retry := reap.DefaultRetryConfig()
	retry.MaxAttempts = c.MaxAttempts
	retry.BaseDelay = c.BackoffBase
	retry.MaxDelay = c.BackoffCap
	return retry
}

// RunOptions translates the configuration into coordinator options.
func (c *Config) RunOptions() run.Options {
	return run.Options{
		DryRun:        c.DryRun,
		Namespace:     c.Namespace,
		CycleInterval: c.CycleInterval,
		CycleDeadline: c.CycleDeadline,
	}
}
