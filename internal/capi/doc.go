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

// Package capi provides read and delete access to Cluster API cluster
// resources.
//
// The package exposes the Clusters interface, a deliberately narrow view of
// the Kubernetes API: list the cluster.x-k8s.io Cluster objects (optionally
// scoped to one namespace) and delete a single cluster by identity. All
// other Kubernetes concerns - credentials, transport, caching - live behind
// the injected controller-runtime client.
//
// Listings are returned as ClusterRef values: immutable snapshots of the
// metadata the janitor needs (identity, labels, creation timestamp, phase,
// owner references). A ClusterRef is never refreshed in place; callers that
// want current state list again.
//
// The package also owns the deletion-error taxonomy. Classify maps an error
// returned by the API server onto an ErrorKind so that callers can decide
// whether to retry (conflict, rate limiting, server unavailable), give up
// (forbidden), or treat the error as success (not found - the cluster is
// already gone, which is the desired end state).
//
// Example usage:
//
//	clusters, err := capi.NewClusters(restConfig)
//	if err != nil {
//		return err
//	}
//	refs, err := clusters.List(ctx, "")
package capi
