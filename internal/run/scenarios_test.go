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

package run

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	clusterv1 "sigs.k8s.io/cluster-api/api/core/v1beta2"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"github.com/mikelane/capijanitor/internal/capi"
	"github.com/mikelane/capijanitor/internal/policy"
	"github.com/mikelane/capijanitor/internal/reap"
	"github.com/mikelane/capijanitor/internal/report"
)

var _ = Describe("Cleanup cycles end to end", func() {
	var (
		scheme    *runtime.Scheme
		retention policy.RetentionPolicy
	)

	newCAPICluster := func(name string, age time.Duration, clusterLabels map[string]string) *clusterv1.Cluster {
		return &clusterv1.Cluster{
			ObjectMeta: metav1.ObjectMeta{
				Namespace:         "ci",
				Name:              name,
				Labels:            clusterLabels,
				CreationTimestamp: metav1.NewTime(time.Now().Add(-age)),
			},
			Status: clusterv1.ClusterStatus{
				Phase: string(clusterv1.ClusterPhaseProvisioned),
			},
		}
	}

	coordinatorFor := func(c client.Client, opts Options) *Coordinator {
		clusters := capi.NewClustersFor(c)
		reaper := reap.NewOrchestrator(clusters, reap.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
			Factor:      1.0,
		}, 2)
		return New(clusters, retention, reaper, nil, opts)
	}

	BeforeEach(func() {
		scheme = runtime.NewScheme()
		Expect(clusterv1.AddToScheme(scheme)).To(Succeed())

		selector, err := labels.Parse("env=ephemeral")
		Expect(err).NotTo(HaveOccurred())
		retention = policy.RetentionPolicy{
			Selector:        selector,
			MinimumAge:      time.Hour,
			GraceWindow:     10 * time.Minute,
			ProtectedLabels: map[string]string{"protected": "true"},
		}
	})

	Describe("Scenario: matching cluster past minimum age", func() {
		It("deletes the cluster and reports a success", func() {
			c1 := newCAPICluster("c1", 2*time.Hour, map[string]string{"env": "ephemeral"})
			k8sClient := fake.NewClientBuilder().WithScheme(scheme).WithObjects(c1).Build()

			summary, err := coordinatorFor(k8sClient, Options{}).RunOnce(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Clusters[report.BucketDeleted]).To(ConsistOf("ci/c1"))

			var cluster clusterv1.Cluster
			getErr := k8sClient.Get(context.Background(), client.ObjectKey{Namespace: "ci", Name: "c1"}, &cluster)
			Expect(apierrors.IsNotFound(getErr)).To(BeTrue(), "c1 should be gone from the API")
		})
	})

	Describe("Scenario: matching cluster below minimum age", func() {
		It("keeps the cluster", func() {
			c2 := newCAPICluster("c2", 10*time.Minute, map[string]string{"env": "ephemeral"})
			k8sClient := fake.NewClientBuilder().WithScheme(scheme).WithObjects(c2).Build()

			summary, err := coordinatorFor(k8sClient, Options{}).RunOnce(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Clusters[report.BucketKept]).To(ConsistOf("ci/c2"))
			Expect(summary.Count(report.BucketDeleted)).To(BeZero())

			var cluster clusterv1.Cluster
			Expect(k8sClient.Get(context.Background(), client.ObjectKey{Namespace: "ci", Name: "c2"}, &cluster)).To(Succeed())
		})
	})

	Describe("Scenario: protected cluster matching the selector", func() {
		It("skips the cluster regardless of age", func() {
			c3 := newCAPICluster("c3", 5*time.Hour, map[string]string{
				"env":       "ephemeral",
				"protected": "true",
			})
			k8sClient := fake.NewClientBuilder().WithScheme(scheme).WithObjects(c3).Build()

			summary, err := coordinatorFor(k8sClient, Options{}).RunOnce(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Clusters[report.BucketSkippedProtected]).To(ConsistOf("ci/c3"))

			var cluster clusterv1.Cluster
			Expect(k8sClient.Get(context.Background(), client.ObjectKey{Namespace: "ci", Name: "c3"}, &cluster)).To(Succeed())
		})
	})

	Describe("Scenario: listing fails with an unavailable API", func() {
		It("aborts the cycle and recovers on the next one", func() {
			c1 := newCAPICluster("c1", 2*time.Hour, map[string]string{"env": "ephemeral"})

			failures := 1
			k8sClient := fake.NewClientBuilder().
				WithScheme(scheme).
				WithObjects(c1).
				WithInterceptorFuncs(interceptor.Funcs{
					List: func(ctx context.Context, c client.WithWatch, list client.ObjectList, opts ...client.ListOption) error {
						if failures > 0 {
							failures--
							return apierrors.NewServiceUnavailable("api server down")
						}
						return c.List(ctx, list, opts...)
					},
				}).
				Build()

			coordinator := coordinatorFor(k8sClient, Options{})

			summary, err := coordinator.RunOnce(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(summary.Failed).To(BeTrue())
			Expect(summary.Total()).To(BeZero(), "no partial evaluation on listing failure")
			Expect(coordinator.State()).To(Equal(StateIdle))

			summary, err = coordinator.RunOnce(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Failed).To(BeFalse())
			Expect(summary.Clusters[report.BucketDeleted]).To(ConsistOf("ci/c1"))
		})
	})

	Describe("Scenario: cluster already terminating", func() {
		It("never issues a second deletion", func() {
			deleting := newCAPICluster("going", 5*time.Hour, map[string]string{"env": "ephemeral"})
			deleting.Finalizers = []string{"cluster.cluster.x-k8s.io"}

			deleteCalls := 0
			k8sClient := fake.NewClientBuilder().
				WithScheme(scheme).
				WithObjects(deleting).
				WithInterceptorFuncs(interceptor.Funcs{
					Delete: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.DeleteOption) error {
						deleteCalls++
						return c.Delete(ctx, obj, opts...)
					},
				}).
				Build()

			// Start a real deletion so the object carries a deletion
			// timestamp; the finalizer keeps it visible.
			Expect(k8sClient.Delete(context.Background(), deleting)).To(Succeed())
			deleteCalls = 0

			summary, err := coordinatorFor(k8sClient, Options{}).RunOnce(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(deleteCalls).To(BeZero(), "no duplicate deletion for a terminating cluster")

			Expect(summary.Clusters[report.BucketSkippedTransient]).To(ConsistOf("ci/going"))
			Expect(summary.Count(report.BucketDeleted)).To(BeZero())
		})
	})
})
