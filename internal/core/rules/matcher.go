package rules

import (
	"fmt"
	"regexp"
)

// PatternError reports a rule pattern that failed to compile. It is returned
// from Builder.Build before any merge begins.
type PatternError struct {
	Expr string
	Err  error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid rule pattern %q: %v", e.Expr, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

type matcherKind int

const (
	matchLiteral matcherKind = iota
	matchPattern
)

// Matcher matches a section or key name. It is either an exact literal or a
// regular expression; the choice is fixed when the matcher is created.
// Patterns are compiled during Builder.Build and must match the entire name.
type Matcher struct {
	kind    matcherKind
	literal string
	expr    string
	re      *regexp.Regexp
}

// Literal returns a matcher for an exact name.
func Literal(name string) Matcher {
	return Matcher{kind: matchLiteral, literal: name}
}

// Pattern returns a matcher for a regular expression. Compilation is
// deferred to Builder.Build so all pattern errors surface at construction.
func Pattern(expr string) Matcher {
	return Matcher{kind: matchPattern, expr: expr}
}

// IsLiteral reports whether the matcher is an exact literal.
func (m Matcher) IsLiteral() bool {
	return m.kind == matchLiteral
}

func (m Matcher) String() string {
	if m.kind == matchLiteral {
		return m.literal
	}
	return "/" + m.expr + "/"
}

func (m *Matcher) compile() error {
	if m.kind != matchPattern || m.re != nil {
		return nil
	}
	re, err := regexp.Compile(`\A(?:` + m.expr + `)\z`)
	if err != nil {
		return &PatternError{Expr: m.expr, Err: err}
	}
	m.re = re
	return nil
}

func (m Matcher) matches(name string) bool {
	if m.kind == matchLiteral {
		return m.literal == name
	}
	return m.re.MatchString(name)
}
