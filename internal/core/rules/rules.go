// Package rules implements the ordered rule list that classifies every
// (section, key) pair of a merge, mapping it to a directive. Rules are
// evaluated strictly in declared order; the first match wins, with no
// specificity weighting.
package rules

import "errors"

var errSetNeedsLiterals = errors.New("set rules require literal section and key matchers")

// Rule pairs a section matcher (and optional key matcher) with a directive.
// A rule without a key matcher applies to the whole section.
type Rule struct {
	Section   Matcher
	Key       *Matcher
	Directive Directive
}

// ForcedKey is a key that a set rule guarantees to exist in its section.
type ForcedKey struct {
	Section string
	Key     string
	Value   string
}

// RuleSet is a compiled, immutable, ordered rule list. It is side-effect
// free and safe to share between merge runs.
type RuleSet struct {
	rules  []Rule
	forced []ForcedKey
}

// Match returns the directive for a (section, key) pair: the directive of
// the first rule whose section matcher matches section and whose key matcher
// (if any) matches key. A rule without a key matcher matches every key of
// its section. Unmatched pairs default to Copy.
func (s *RuleSet) Match(section, key string) Directive {
	for _, r := range s.rules {
		if !r.Section.matches(section) {
			continue
		}
		if r.Key == nil || r.Key.matches(key) {
			return r.Directive
		}
	}
	return Copy()
}

// MatchSection returns the directive governing a whole section: the first
// rule without a key matcher whose section matcher matches. Unmatched
// sections default to Copy.
func (s *RuleSet) MatchSection(section string) Directive {
	for _, r := range s.rules {
		if r.Key == nil && r.Section.matches(section) {
			return r.Directive
		}
	}
	return Copy()
}

// ForcedKeys returns the keys that set rules force into the given section,
// in declaration order.
func (s *RuleSet) ForcedKeys(section string) []ForcedKey {
	var out []ForcedKey
	for _, f := range s.forced {
		if f.Section == section {
			out = append(out, f)
		}
	}
	return out
}

// ForcedSections returns the distinct sections named by set rules, in
// declaration order.
func (s *RuleSet) ForcedSections() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, f := range s.forced {
		if _, ok := seen[f.Section]; ok {
			continue
		}
		seen[f.Section] = struct{}{}
		out = append(out, f.Section)
	}
	return out
}

// Builder accumulates rules and compiles them into a RuleSet.
type Builder struct {
	rules []Rule
}

// NewBuilder creates an empty rule set builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a rule matching a section and a specific key.
func (b *Builder) Add(section, key Matcher, directive Directive) *Builder {
	k := key
	b.rules = append(b.rules, Rule{Section: section, Key: &k, Directive: directive})
	return b
}

// AddSection appends a rule matching every key of a section.
func (b *Builder) AddSection(section Matcher, directive Directive) *Builder {
	b.rules = append(b.rules, Rule{Section: section, Directive: directive})
	return b
}

// Build compiles all pattern matchers and returns the immutable rule set.
// It fails with a *PatternError if any pattern does not compile, and rejects
// set rules with non-literal matchers (a forced key needs a concrete name
// to be written out).
func (b *Builder) Build() (*RuleSet, error) {
	set := &RuleSet{rules: make([]Rule, len(b.rules))}
	copy(set.rules, b.rules)

	for i := range set.rules {
		r := &set.rules[i]
		if err := r.Section.compile(); err != nil {
			return nil, err
		}
		if r.Key != nil {
			if err := r.Key.compile(); err != nil {
				return nil, err
			}
		}
		if r.Directive.Kind == KindSet {
			if !r.Section.IsLiteral() || r.Key == nil || !r.Key.IsLiteral() {
				return nil, &PatternError{
					Expr: r.Section.String(),
					Err:  errSetNeedsLiterals,
				}
			}
			set.forced = append(set.forced, ForcedKey{
				Section: r.Section.literal,
				Key:     r.Key.literal,
				Value:   r.Directive.Value,
			})
		}
	}
	return set, nil
}
