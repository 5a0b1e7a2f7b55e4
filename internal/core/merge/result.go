package merge

import (
	"fmt"
	"strings"
)

// Warning records a recoverable problem encountered during a merge, such as
// a secret lookup that fell back to the target value.
type Warning struct {
	Section string
	Key     string
	Err     error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s -> %s: %v", w.Section, w.Key, w.Err)
}

// SecretLookupError is a resolver failure during merge. It is fatal unless
// the matching rule opted into the keep-target policy.
type SecretLookupError struct {
	Section string
	Key     string
	Service string
	Account string
	Err     error
}

func (e *SecretLookupError) Error() string {
	return fmt.Sprintf("secret lookup for %s -> %s (service %q, account %q) failed: %v",
		e.Section, e.Key, e.Service, e.Account, e.Err)
}

func (e *SecretLookupError) Unwrap() error {
	return e.Err
}

// Result is the output of one merge run: an ordered sequence of text
// segments that concatenate to the merged file. Untouched segments are
// substrings of the original inputs (no copy, no reformatting); only
// rewritten value tokens and appended lines are newly built strings.
type Result struct {
	segments []string
	warnings []Warning
}

// Segments returns the ordered output segments. The slice is shared;
// callers must not modify it.
func (r *Result) Segments() []string {
	return r.segments
}

// Warnings returns recoverable problems recorded during the merge.
func (r *Result) Warnings() []Warning {
	return r.warnings
}

// String concatenates the segments into the complete merged text.
func (r *Result) String() string {
	var b strings.Builder
	n := 0
	for _, s := range r.segments {
		n += len(s)
	}
	b.Grow(n)
	for _, s := range r.segments {
		b.WriteString(s)
	}
	return b.String()
}
