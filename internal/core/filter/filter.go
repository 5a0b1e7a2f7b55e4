// Package filter implements the single-file companion pass to the merger:
// it walks one document and removes or rewrites entries according to the
// same rule set, leaving everything else byte-identical. Its main use is
// stripping runtime state and redacting secrets from a live file before the
// result is committed as the managed source.
package filter

import (
	"strings"

	"inimerge.dev/cli/internal/core/document"
	"inimerge.dev/cli/internal/core/rules"
)

// Redacted replaces secret-managed values in filter output.
const Redacted = "<REDACTED>"

// Apply filters a document under the rule set. Directives are reinterpreted
// for the one-file case: Delete removes the line (or section), Set forces
// the value, Secret redacts the value, everything else keeps the line
// unchanged.
func Apply(doc *document.Document, set *rules.RuleSet) string {
	st := &filterState{doc: doc, rules: set}
	st.enterSection(document.NoSection)

	for _, tok := range doc.Tokens() {
		switch tok.Kind {
		case document.KindComment, document.KindBlank:
			if st.sectionDeleted {
				continue
			}
			st.emit(doc.Text(tok.Raw))
		case document.KindSection:
			st.enterSection(doc.Text(tok.Name))
			if st.sectionDeleted {
				st.pendingHeader = doc.Text(tok.Raw)
				continue
			}
			st.emit(doc.Text(tok.Raw))
		case document.KindProperty:
			st.property(tok)
		}
	}
	return st.out.String()
}

type filterState struct {
	doc   *document.Document
	rules *rules.RuleSet

	out            strings.Builder
	cur            string
	sectionDeleted bool
	pendingHeader  string
}

func (st *filterState) enterSection(name string) {
	st.cur = name
	st.sectionDeleted = st.rules.MatchSection(name).Kind == rules.KindDelete
	st.pendingHeader = ""
}

func (st *filterState) emit(segment string) {
	st.out.WriteString(segment)
}

func (st *filterState) keep(segment string) {
	if st.pendingHeader != "" {
		st.emit(st.pendingHeader)
		st.pendingHeader = ""
	}
	st.emit(segment)
}

func (st *filterState) property(tok document.Token) {
	key := st.doc.Text(tok.Key)
	d := st.rules.Match(st.cur, key)

	switch d.Kind {
	case rules.KindDelete:
		return
	case rules.KindSet:
		st.keep(rewriteValue(st.doc, tok, d.Value))
	case rules.KindSecret:
		st.keep(rewriteValue(st.doc, tok, Redacted))
	default:
		st.keep(st.doc.Text(tok.Raw))
	}
}

// rewriteValue mirrors the merge engine's value substitution: the line keeps
// its key spelling, spacing and terminator, only the value token changes.
func rewriteValue(doc *document.Document, tok document.Token, value string) string {
	if tok.HasValue {
		prefix := doc.Text(document.Span{Start: tok.Raw.Start, End: tok.Val.Start})
		suffix := doc.Text(document.Span{Start: tok.Val.End, End: tok.Raw.End})
		return prefix + value + suffix
	}
	prefix := doc.Text(document.Span{Start: tok.Raw.Start, End: tok.Key.End})
	suffix := doc.Text(document.Span{Start: tok.Key.End, End: tok.Raw.End})
	return prefix + "=" + value + suffix
}
