// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"modboot/pkg/artifact"
)

func TestImplicitRules(t *testing.T) {
	t.Parallel()

	rt := Runtime{
		Namespace:            "kotlin",
		Version:              "1.8.22",
		ConcurrencyNamespace: "kotlinx.coroutines.",
		ConcurrencyVersion:   "1.7.3",
	}
	want := artifact.RuleSet{
		artifact.NewRule("kotlin.", "kotlin1822."),
		artifact.NewRule("kotlinx.coroutines.", "kotlinx.coroutines173."),
	}
	if diff := cmp.Diff(want, ImplicitRules(rt)); diff != "" {
		t.Errorf("ImplicitRules mismatch (-want +got):\n%s", diff)
	}
	if got := rt.RelocatedName("kotlin.Lazy"); got != "kotlin1822.Lazy" {
		t.Errorf("RelocatedName = %q", got)
	}
	if got := rt.RelocatedName("kotlinx.coroutines.Job"); got != "kotlinx.coroutines173.Job" {
		t.Errorf("RelocatedName = %q", got)
	}
}

func TestImplicitRules_Unconfigured(t *testing.T) {
	t.Parallel()

	if got := ImplicitRules(Runtime{Namespace: "kotlin"}); len(got) != 0 {
		t.Errorf("ImplicitRules without version = %v", got)
	}
	if got := ImplicitRules(Runtime{}); len(got) != 0 {
		t.Errorf("ImplicitRules(zero) = %v", got)
	}
}
