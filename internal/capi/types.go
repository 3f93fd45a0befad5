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
	"fmt"
	"time"

	clusterv1 "sigs.k8s.io/cluster-api/api/core/v1beta2"
)

// Phase is the janitor's view of a cluster's lifecycle state. It collapses
// the Cluster API phase set down to the distinctions the retention policy
// cares about: still coming up, steady state, already going away, or
// anything else.
type Phase string

const (
	// PhaseProvisioning covers clusters that are still being created
	// (Cluster API Pending or Provisioning).
	PhaseProvisioning Phase = "Provisioning"

	// PhaseProvisioned covers clusters in steady state.
	PhaseProvisioned Phase = "Provisioned"

	// PhaseDeleting covers clusters that already have a deletion in
	// progress, either by phase or by deletion timestamp.
	PhaseDeleting Phase = "Deleting"

	// PhaseUnknown covers everything else, including Failed clusters and
	// clusters whose status has not been populated yet.
	PhaseUnknown Phase = "Unknown"
)

// ClusterRef is an immutable snapshot of one Cluster API cluster, taken at
// listing time. It carries exactly the metadata the retention policy and the
// deletion orchestrator need; it is never mutated after construction, and it
// is never refreshed - observing newer state requires a new listing.
type ClusterRef struct {
	// Namespace and Name identify the cluster.
	Namespace string
	Name      string

	// Labels is the cluster's label set at listing time.
	Labels map[string]string

	// CreatedAt is the cluster's creation timestamp.
	CreatedAt time.Time

	// Phase is the cluster's lifecycle phase at listing time.
	Phase Phase

	// OwnerRefs holds the UIDs of controller owner references on the
	// cluster. A non-empty set means some other controller manages this
	// cluster's lifecycle and the janitor must leave it alone.
	OwnerRefs []string
}

// ID returns the cluster's identity in "namespace/name" form. It is the key
// used for dedupe and for the identity lists in run summaries.
func (r ClusterRef) ID() string {
	return fmt.Sprintf("%s/%s", r.Namespace, r.Name)
}

// Age returns how long the cluster has existed as of now.
func (r ClusterRef) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}

// refFromCluster converts a Cluster API object into a ClusterRef snapshot.
// Labels are copied so the snapshot does not alias the informer cache.
func refFromCluster(cluster *clusterv1.Cluster) ClusterRef {
	labels := make(map[string]string, len(cluster.Labels))
	for k, v := range cluster.Labels {
		labels[k] = v
	}

	var owners []string
	for _, ref := range cluster.OwnerReferences {
		if ref.Controller != nil && *ref.Controller {
			owners = append(owners, string(ref.UID))
		}
	}

	return ClusterRef{
		Namespace: cluster.Namespace,
		Name:      cluster.Name,
		Labels:    labels,
		CreatedAt: cluster.CreationTimestamp.Time,
		Phase:     phaseOf(cluster),
		OwnerRefs: owners,
	}
}

// phaseOf maps a cluster's status onto the janitor's Phase enum. A deletion
// timestamp always wins over the reported phase: once deletion has started
// the phase string may lag behind.
func phaseOf(cluster *clusterv1.Cluster) Phase {
	if !cluster.DeletionTimestamp.IsZero() {
		return PhaseDeleting
	}

	switch cluster.Status.GetTypedPhase() {
	case clusterv1.ClusterPhasePending, clusterv1.ClusterPhaseProvisioning:
		return PhaseProvisioning
	case clusterv1.ClusterPhaseProvisioned:
		return PhaseProvisioned
	case clusterv1.ClusterPhaseDeleting:
		return PhaseDeleting
	default:
		return PhaseUnknown
	}
}
