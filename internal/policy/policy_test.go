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
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/labels"

	"github.com/mikelane/capijanitor/internal/capi"
)

var testNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func testPolicy(t *testing.T) RetentionPolicy {
	t.Helper()
	selector, err := labels.Parse("env=ephemeral")
	if err != nil {
		t.Fatalf("failed to parse selector: %v", err)
	}
	return RetentionPolicy{
		Selector:        selector,
		MinimumAge:      time.Hour,
		GraceWindow:     10 * time.Minute,
		ProtectedLabels: map[string]string{"protected": "true"},
	}
}

func cluster(age time.Duration, phase capi.Phase, clusterLabels map[string]string) capi.ClusterRef {
	return capi.ClusterRef{
		Namespace: "ci",
		Name:      "c",
		Labels:    clusterLabels,
		CreatedAt: testNow.Add(-age),
		Phase:     phase,
	}
}

func TestEvaluate(t *testing.T) {
	matching := map[string]string{"env": "ephemeral"}

	tests := []struct {
		name string
		ref  capi.ClusterRef
		want Decision
	}{
		{
			name: "deleting cluster is skipped regardless of age and labels",
			ref:  cluster(100*time.Hour, capi.PhaseDeleting, matching),
			want: DecisionSkipTransient,
		},
		{
			name: "deleting cluster is skipped even when protected",
			ref:  cluster(time.Minute, capi.PhaseDeleting, map[string]string{"env": "ephemeral", "protected": "true"}),
			want: DecisionSkipTransient,
		},
		{
			name: "provisioning cluster inside grace window is skipped",
			ref:  cluster(5*time.Minute, capi.PhaseProvisioning, matching),
			want: DecisionSkipTransient,
		},
		{
			name: "provisioning cluster past the grace window is evaluated normally",
			ref:  cluster(2*time.Hour, capi.PhaseProvisioning, matching),
			want: DecisionDelete,
		},
		{
			name: "selector miss is kept",
			ref:  cluster(100*time.Hour, capi.PhaseProvisioned, map[string]string{"env": "production"}),
			want: DecisionKeep,
		},
		{
			name: "no labels is kept",
			ref:  cluster(100*time.Hour, capi.PhaseProvisioned, nil),
			want: DecisionKeep,
		},
		{
			name: "protection outranks selector match and age",
			ref:  cluster(100*time.Hour, capi.PhaseProvisioned, map[string]string{"env": "ephemeral", "protected": "true"}),
			want: DecisionSkipProtected,
		},
		{
			name: "protected key with a different value does not protect",
			ref:  cluster(2*time.Hour, capi.PhaseProvisioned, map[string]string{"env": "ephemeral", "protected": "false"}),
			want: DecisionDelete,
		},
		{
			name: "controller-owned cluster is protected",
			ref: capi.ClusterRef{
				Namespace: "ci",
				Name:      "owned",
				Labels:    matching,
				CreatedAt: testNow.Add(-2 * time.Hour),
				Phase:     capi.PhaseProvisioned,
				OwnerRefs: []string{"uid-1"},
			},
			want: DecisionSkipProtected,
		},
		{
			name: "below minimum age is kept",
			ref:  cluster(10*time.Minute, capi.PhaseProvisioned, matching),
			want: DecisionKeep,
		},
		{
			name: "matching and old enough is deleted",
			ref:  cluster(2*time.Hour, capi.PhaseProvisioned, matching),
			want: DecisionDelete,
		},
		{
			name: "unknown phase is evaluated by selector and age",
			ref:  cluster(2*time.Hour, capi.PhaseUnknown, matching),
			want: DecisionDelete,
		},
	}

	pol := testPolicy(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.ref, pol, testNow); got != tt.want {
				t.Errorf("Evaluate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvaluate_is_deterministic(t *testing.T) {
	pol := testPolicy(t)
	refs := []capi.ClusterRef{
		cluster(2*time.Hour, capi.PhaseProvisioned, map[string]string{"env": "ephemeral"}),
		cluster(5*time.Minute, capi.PhaseProvisioning, map[string]string{"env": "ephemeral"}),
		cluster(100*time.Hour, capi.PhaseDeleting, nil),
	}

	for _, ref := range refs {
		first := Evaluate(ref, pol, testNow)
		for i := 0; i < 10; i++ {
			if got := Evaluate(ref, pol, testNow); got != first {
				t.Fatalf("Evaluate() is not deterministic: got %q then %q for %s", first, got, ref.ID())
			}
		}
	}
}

func TestEvaluate_existence_selector(t *testing.T) {
	selector, err := labels.Parse("team")
	if err != nil {
		t.Fatalf("failed to parse selector: %v", err)
	}
	pol := RetentionPolicy{Selector: selector, MinimumAge: time.Hour}

	withKey := cluster(2*time.Hour, capi.PhaseProvisioned, map[string]string{"team": "payments"})
	if got := Evaluate(withKey, pol, testNow); got != DecisionDelete {
		t.Errorf("Evaluate(label present) = %q, want %q", got, DecisionDelete)
	}

	withoutKey := cluster(2*time.Hour, capi.PhaseProvisioned, map[string]string{"env": "ephemeral"})
	if got := Evaluate(withoutKey, pol, testNow); got != DecisionKeep {
		t.Errorf("Evaluate(label absent) = %q, want %q", got, DecisionKeep)
	}
}
