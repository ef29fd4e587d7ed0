// SPDX-License-Identifier: MPL-2.0

package artifact_test

import (
	"errors"
	"testing"

	"modboot/pkg/artifact"
)

func TestRuleSetApply(t *testing.T) {
	t.Parallel()

	rules := artifact.RuleSet{
		artifact.NewRule("org.example", "shaded.example"),
		artifact.NewRule("org", "never"),
	}

	tests := []struct {
		in, want string
	}{
		{"org.example.Foo", "shaded.example.Foo"},
		{"org/example/Foo.class", "shaded/example/Foo.class"},
		{"org.other.Bar", "never.other.Bar"},
		{"com.example.Baz", "com.example.Baz"},
	}
	for _, tt := range tests {
		if got := rules.Apply(tt.in); got != tt.want {
			t.Errorf("Apply(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRuleSetDigestStability(t *testing.T) {
	t.Parallel()

	r1 := artifact.RuleSet{artifact.NewRule("org.example", "shaded.example")}
	r2 := artifact.RuleSet{artifact.NewRule("org.example", "shaded.example")}
	if r1.Digest("demo-1.0.jar") != r2.Digest("demo-1.0.jar") {
		t.Fatal("equal rule sets produced different digests")
	}
	if len(r1.Digest()) != 64 {
		t.Errorf("digest length = %d, want 64", len(r1.Digest()))
	}
}

func TestRuleSetDigestDistinguishes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b artifact.RuleSet
	}{
		{
			name: "different targets",
			a:    artifact.RuleSet{artifact.NewRule("org.example", "a.example")},
			b:    artifact.RuleSet{artifact.NewRule("org.example", "b.example")},
		},
		{
			name: "order matters",
			a:    artifact.RuleSet{artifact.NewRule("x", "y"), artifact.NewRule("p", "q")},
			b:    artifact.RuleSet{artifact.NewRule("p", "q"), artifact.NewRule("x", "y")},
		},
		{
			// Naive concatenation would encode both as "ab" + "c".
			name: "delimiter safety",
			a:    artifact.RuleSet{artifact.NewRule("ab", "c")},
			b:    artifact.RuleSet{artifact.NewRule("a", "bc")},
		},
	}
	for _, tc := range cases {
		if tc.a.Digest() == tc.b.Digest() {
			t.Errorf("%s: digests collide", tc.name)
		}
	}

	rules := artifact.RuleSet{artifact.NewRule("org.example", "shaded.example")}
	if rules.Digest("1.8.22") == rules.Digest("1.9.0") {
		t.Error("pins do not affect the digest")
	}
}

func TestParseRule(t *testing.T) {
	t.Parallel()

	r, err := artifact.ParseRule("org.example = shaded.example")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	if r != artifact.NewRule("org.example", "shaded.example") {
		t.Errorf("ParseRule = %+v", r)
	}

	for _, bad := range []string{"org.example", "=x", "x="} {
		if _, err := artifact.ParseRule(bad); !errors.Is(err, artifact.ErrInvalidRule) {
			t.Errorf("ParseRule(%q) error = %v, want ErrInvalidRule", bad, err)
		}
	}
}

func TestRuleSetWithDoesNotAlias(t *testing.T) {
	t.Parallel()

	base := make(artifact.RuleSet, 1, 4)
	base[0] = artifact.NewRule("a", "b")
	one := base.With(artifact.NewRule("c", "d"))
	two := base.With(artifact.NewRule("e", "f"))
	if one[1] == two[1] {
		t.Fatal("With shares backing storage between results")
	}
	if len(base) != 1 {
		t.Errorf("base modified: %v", base)
	}
}
