// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"strings"
	"unicode"

	"modboot/pkg/artifact"
)

// Runtime describes the embedded language runtime whose namespaces are
// relocated on every module so that different runtime versions can share a
// host process.
type Runtime struct {
	Namespace            string
	Version              string
	ConcurrencyNamespace string
	ConcurrencyVersion   string
}

// Pins returns the runtime versions that take part in cache keys.
func (rt Runtime) Pins() []string {
	return []string{rt.Version, rt.ConcurrencyVersion}
}

// ImplicitRules returns the always-on runtime rules: each namespace is moved
// under a version-suffixed twin ("kotlin." -> "kotlin1822." for 1.8.22).
// Namespaces that are not configured contribute no rule.
func ImplicitRules(rt Runtime) artifact.RuleSet {
	var rules artifact.RuleSet
	if r, ok := versionedRule(rt.Namespace, rt.Version); ok {
		rules = append(rules, r)
	}
	if r, ok := versionedRule(rt.ConcurrencyNamespace, rt.ConcurrencyVersion); ok {
		rules = append(rules, r)
	}
	return rules
}

// RelocatedName returns the name a unit in ns gets under ImplicitRules.
func (rt Runtime) RelocatedName(unit string) string {
	return ImplicitRules(rt).Apply(unit)
}

func versionedRule(ns, version string) (artifact.Rule, bool) {
	ns = strings.TrimSuffix(ns, ".")
	digits := versionDigits(version)
	if ns == "" || digits == "" {
		return artifact.Rule{}, false
	}
	return artifact.NewRule(ns+".", ns+digits+"."), true
}

// versionDigits keeps only the digits of a version string ("1.8.22" -> "1822").
func versionDigits(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, v)
}
