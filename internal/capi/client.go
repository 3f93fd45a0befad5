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
	"context"
	"fmt"
	"sort"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	clusterv1 "sigs.k8s.io/cluster-api/api/core/v1beta2"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Clusters is the janitor's view of the cluster resource API. It is the only
// surface through which the engine touches Kubernetes.
type Clusters interface {
	// List returns a snapshot of all Cluster API clusters, ordered by
	// namespace/name. An empty namespace lists across all namespaces.
	// List either fully succeeds or fails; it never returns a partial
	// snapshot.
	List(ctx context.Context, namespace string) ([]ClusterRef, error)

	// Delete requests deletion of one cluster by identity. The returned
	// error (if any) can be classified with Classify.
	Delete(ctx context.Context, namespace, name string) error
}

// clusterClient implements Clusters on a controller-runtime client.
type clusterClient struct {
	client client.Client
}

// NewClusters builds a Clusters implementation from a rest.Config. The
// client's scheme registers only the Cluster API core types - the janitor
// never touches any other resource kind.
func NewClusters(cfg *rest.Config) (Clusters, error) {
	scheme := runtime.NewScheme()
	if err := clusterv1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to register cluster API scheme: %w", err)
	}

	c, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster client: %w", err)
	}

	return NewClustersFor(c), nil
}

// NewClustersFor wraps an existing controller-runtime client. Used by tests
// with the fake client.
func NewClustersFor(c client.Client) Clusters {
	return &clusterClient{client: c}
}

// List fetches all Cluster objects and converts them to ClusterRef
// snapshots. A failed list is a hard failure for the whole call - there is
// no partial result.
func (c *clusterClient) List(ctx context.Context, namespace string) ([]ClusterRef, error) {
	var clusterList clusterv1.ClusterList

	var opts []client.ListOption
	if namespace != "" {
		opts = append(opts, client.InNamespace(namespace))
	}

	if err := c.client.List(ctx, &clusterList, opts...); err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}

	refs := make([]ClusterRef, 0, len(clusterList.Items))
	for i := range clusterList.Items {
		refs = append(refs, refFromCluster(&clusterList.Items[i]))
	}

	// Deterministic ordering so successive runs evaluate clusters in the
	// same sequence.
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Namespace != refs[j].Namespace {
			return refs[i].Namespace < refs[j].Namespace
		}
		return refs[i].Name < refs[j].Name
	})

	return refs, nil
}

// Delete issues a deletion request for one cluster. The API error is
// returned unwrapped enough for Classify to recognize it.
func (c *clusterClient) Delete(ctx context.Context, namespace, name string) error {
	cluster := &clusterv1.Cluster{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: namespace,
			Name:      name,
		},
	}

	if err := c.client.Delete(ctx, cluster); err != nil {
		return fmt.Errorf("failed to delete cluster %s/%s: %w", namespace, name, err)
	}

	return nil
}
