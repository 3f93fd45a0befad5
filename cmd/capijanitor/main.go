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

// capijanitor deletes Cluster API clusters that match a label selector and
// have outlived their retention policy. It runs either as a one-shot command
// or as a daemon cycling on an interval, and exposes Prometheus metrics
// describing what each cycle did.
package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/mikelane/capijanitor/internal/capi"
	"github.com/mikelane/capijanitor/internal/config"
	"github.com/mikelane/capijanitor/internal/reap"
	"github.com/mikelane/capijanitor/internal/report"
	"github.com/mikelane/capijanitor/internal/run"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.Default()
	// Environment fallbacks become the flag defaults, so an explicit flag
	// still overrides CAPIJANITOR_* variables. A bad value is reported at
	// run time, after cobra's own flag handling.
	envErr := cfg.LoadEnv()
	var once bool
	var devLogging bool

	cmd := &cobra.Command{
		Use:   "capijanitor",
		Short: "Delete Cluster API clusters that have outlived their retention policy",
		Long: `capijanitor periodically lists Cluster API clusters, evaluates each one
against a label selector and age policy, and deletes the ones that are
eligible. Protected clusters are never deleted, clusters mid-creation or
already terminating are skipped, and every outcome is exported as Prometheus
metrics for operators to watch.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			if envErr != nil {
				return envErr
			}
			return runJanitor(cfg, once, devLogging)
		},
	}

	cfg.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&once, "once", false,
		"Run a single cleanup cycle and exit instead of running as a daemon")
	cmd.Flags().BoolVar(&devLogging, "dev-logging", false,
		"Use human-readable development log output")

	return cmd
}

func runJanitor(cfg config.Config, once, devLogging bool) error {
	ctrl.SetLogger(zap.New(zap.UseDevMode(devLogging)))

	// Configuration problems are fatal before any run starts.
	if err := cfg.Validate(); err != nil {
		return err
	}
	pol, err := cfg.Policy()
	if err != nil {
		return err
	}

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	clusters, err := capi.NewClusters(restConfig)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := report.NewMetrics(registry)
	reaper := reap.NewOrchestrator(clusters, cfg.Retry(), cfg.MaxConcurrency)
	coordinator := run.New(clusters, pol, reaper, metrics, cfg.RunOptions())

	ctx := ctrl.SetupSignalHandler()

	if once {
		summary, err := coordinator.RunOnce(ctx)
		if err != nil {
			return err
		}
		if summary.Failed {
			return fmt.Errorf("cleanup cycle failed: %s", summary.FailureReason)
		}
		return nil
	}

	server := report.NewServer(cfg.ListenAddr, registry)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	if err := coordinator.Start(ctx); err != nil {
		return err
	}
	return <-serverErr
}
