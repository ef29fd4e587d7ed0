// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const rulesDigestHeader = "modboot-rules/v1\n"

// ErrInvalidRule is returned when a relocation rule has an empty side.
var ErrInvalidRule = errors.New("invalid relocation rule")

type (
	// Rule relocates every symbol starting with From so that it starts with To.
	// Both sides use the dotted spelling ("org.example"); the slashed spelling
	// used by archive entry names is derived.
	Rule struct {
		From string `json:"from" mapstructure:"from" toml:"from"`
		To   string `json:"to" mapstructure:"to" toml:"to"`
	}

	// RuleSet is an ordered list of rules. Order matters: the first rule whose
	// prefix matches a symbol is the one applied.
	RuleSet []Rule
)

// NewRule builds a rule.
func NewRule(from, to string) Rule {
	return Rule{From: from, To: to}
}

// ParseRule parses "from=to".
func ParseRule(s string) (Rule, error) {
	from, to, ok := strings.Cut(s, "=")
	r := Rule{From: strings.TrimSpace(from), To: strings.TrimSpace(to)}
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q: expected from=to", ErrInvalidRule, s)
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate reports an error when either side is empty.
func (r Rule) Validate() error {
	if r.From == "" || r.To == "" {
		return fmt.Errorf("%w: %q -> %q", ErrInvalidRule, r.From, r.To)
	}
	return nil
}

// SlashFrom returns From in slashed form.
func (r Rule) SlashFrom() string { return strings.ReplaceAll(r.From, ".", "/") }

// SlashTo returns To in slashed form.
func (r Rule) SlashTo() string { return strings.ReplaceAll(r.To, ".", "/") }

// String returns "from -> to".
func (r Rule) String() string { return r.From + " -> " + r.To }

// Validate checks every rule in order.
func (rs RuleSet) Validate() error {
	for i, r := range rs {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// With returns a new rule set with extra appended; rs is not modified.
func (rs RuleSet) With(extra ...Rule) RuleSet {
	out := make(RuleSet, 0, len(rs)+len(extra))
	out = append(out, rs...)
	return append(out, extra...)
}

// Apply relocates a single dotted or slashed symbol name. The first matching
// rule wins; names that match no rule are returned unchanged.
func (rs RuleSet) Apply(name string) string {
	for _, r := range rs {
		if rest, ok := strings.CutPrefix(name, r.From); ok {
			return r.To + rest
		}
		if rest, ok := strings.CutPrefix(name, r.SlashFrom()); ok {
			return r.SlashTo() + rest
		}
	}
	return name
}

// Canonical returns the delimiter-safe encoding of the rule set.
func (rs RuleSet) Canonical() []byte {
	var sb strings.Builder
	for _, r := range rs {
		writeField(&sb, r.From)
		writeField(&sb, r.To)
		sb.WriteByte(';')
	}
	return []byte(sb.String())
}

// Digest returns the lowercase hex SHA-256 of the canonical encoding of rs
// followed by the extra pins. Two different rule sets never share an encoding.
func (rs RuleSet) Digest(pins ...string) string {
	h := sha256.New()
	h.Write([]byte(rulesDigestHeader))
	h.Write(rs.Canonical())
	var sb strings.Builder
	for _, p := range pins {
		writeField(&sb, p)
		sb.WriteByte(';')
	}
	h.Write([]byte(sb.String()))
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(sb *strings.Builder, s string) {
	sb.WriteString(strconv.Itoa(len(s)))
	sb.WriteByte(':')
	sb.WriteString(s)
}
