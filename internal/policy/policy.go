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

package policy

import (
	"time"

	"k8s.io/apimachinery/pkg/labels"

	"github.com/mikelane/capijanitor/internal/capi"
)

// Decision is the outcome of evaluating one cluster against the retention
// policy. Decisions are recomputed every run and never persisted.
type Decision string

const (
	// DecisionKeep: the cluster does not match the selector, or is still
	// younger than the minimum age.
	DecisionKeep Decision = "Keep"

	// DecisionDelete: the cluster matches the selector, is old enough,
	// and nothing protects it.
	DecisionDelete Decision = "Delete"

	// DecisionSkipProtected: the cluster matches the selector but carries
	// a protected label or is owned by another controller.
	DecisionSkipProtected Decision = "SkipProtected"

	// DecisionSkipTransient: the cluster is already deleting, or still
	// provisioning inside the grace window.
	DecisionSkipTransient Decision = "SkipTransientState"
)

// RetentionPolicy is the declarative rule set for one run. It is loaded once
// at startup and never mutated; Evaluate only reads it.
type RetentionPolicy struct {
	// Selector chooses the clusters the janitor is responsible for.
	// Clusters outside the selector are always kept.
	Selector labels.Selector

	// MinimumAge is how old a matching cluster must be before it becomes
	// eligible for deletion.
	MinimumAge time.Duration

	// GraceWindow shields clusters that are still provisioning. A
	// provisioning cluster younger than the window is skipped even if it
	// already matches selector and age.
	GraceWindow time.Duration

	// ProtectedLabels force-keeps any cluster carrying one of these exact
	// label key/value pairs, regardless of age or selector match.
	ProtectedLabels map[string]string
}

// Evaluate maps one cluster snapshot onto a Decision. It is pure and total:
// no I/O, no error path, and identical inputs always yield the identical
// Decision. The step order here is load-bearing; see the package doc.
func Evaluate(ref capi.ClusterRef, pol RetentionPolicy, now time.Time) Decision {
	// 1. Already going away. Issuing another delete would be redundant at
	// best and a conflict at worst.
	if ref.Phase == capi.PhaseDeleting {
		return DecisionSkipTransient
	}

	// 2. Still coming up. Deleting a half-provisioned cluster tends to
	// strand infrastructure, so young provisioning clusters get a grace
	// window.
	if ref.Phase == capi.PhaseProvisioning && ref.Age(now) < pol.GraceWindow {
		return DecisionSkipTransient
	}

	// 3. Not ours to manage.
	if !pol.Selector.Matches(labels.Set(ref.Labels)) {
		return DecisionKeep
	}

	// 4. Protection outranks everything below, including selector match.
	if isProtected(ref, pol) {
		return DecisionSkipProtected
	}

	// 5. Too young.
	if ref.Age(now) < pol.MinimumAge {
		return DecisionKeep
	}

	// 6. Eligible.
	return DecisionDelete
}

// isProtected reports whether the cluster is exempt from deletion: either it
// carries one of the policy's protected label pairs, or another controller
// owns it and is responsible for its lifecycle.
func isProtected(ref capi.ClusterRef, pol RetentionPolicy) bool {
	for key, value := range pol.ProtectedLabels {
		if got, ok := ref.Labels[key]; ok && got == value {
			return true
		}
	}
	return len(ref.OwnerRefs) > 0
}
