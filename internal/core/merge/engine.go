// Package merge implements the rule-driven, format-preserving merge of a
// source document into a target document. The engine walks the target's
// token stream once, decides per key whether to adopt the source value, keep
// the target value, or substitute an external secret, and reproduces every
// untouched region byte for byte.
package merge

import (
	"strings"

	"inimerge.dev/cli/internal/core/document"
	"inimerge.dev/cli/internal/core/rules"
	"inimerge.dev/cli/internal/core/secrets"
)

// Options configures one merge run.
type Options struct {
	// Resolver performs secret lookups. When nil, a resolver that reports
	// not-found for every lookup is used.
	Resolver secrets.Resolver
}

// Merge produces the merged output for one (target, source) pair under the
// given rule set. The rule set and source index are read-only; all mutable
// state lives in this call, so both may be shared across concurrent runs.
//
// Construction and parse errors never reach this function; the only fatal
// error produced here is a *SecretLookupError from a rule that did not opt
// into the keep-target policy. On error no partial result is returned.
func Merge(target *document.Document, source *document.SourceIndex, set *rules.RuleSet, opts Options) (*Result, error) {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = secrets.Disabled()
	}

	st := &mergeState{
		target:       target,
		source:       source,
		rules:        set,
		resolver:     resolver,
		cursors:      make(map[cursorKey]int),
		seen:         make(map[cursorKey]struct{}),
		seenSections: make(map[string]struct{}),
		reopenings:   make(map[string]int),
	}
	// A section can be reopened later in the target; appends must wait for
	// its final occurrence or keys would migrate between the fragments.
	for _, tok := range target.Tokens() {
		if tok.Kind == document.KindSection {
			st.reopenings[target.Text(tok.Name)]++
		}
	}
	st.enterSection(document.NoSection)

	for _, tok := range target.Tokens() {
		switch tok.Kind {
		case document.KindComment, document.KindBlank:
			if st.sectionDeleted {
				continue
			}
			st.emit(target.Text(tok.Raw))
		case document.KindSection:
			if err := st.flushSection(); err != nil {
				return nil, err
			}
			st.enterSection(target.Text(tok.Name))
			if st.sectionDeleted {
				// Hold the header back: an earlier key rule may still
				// keep a line of this section alive.
				st.pendingHeader = target.Text(tok.Raw)
				continue
			}
			st.emit(target.Text(tok.Raw))
		case document.KindProperty:
			if err := st.property(tok); err != nil {
				return nil, err
			}
		}
	}

	if err := st.flushSection(); err != nil {
		return nil, err
	}
	if err := st.appendNewSections(); err != nil {
		return nil, err
	}

	return &Result{segments: st.out, warnings: st.warnings}, nil
}

type cursorKey struct {
	section string
	key     string
}

// mergeState is the transient state of one merge pass.
type mergeState struct {
	target   *document.Document
	source   *document.SourceIndex
	rules    *rules.RuleSet
	resolver secrets.Resolver

	out      []string
	warnings []Warning

	// cursors track per-(section, key) consumption of source values so
	// duplicate keys resolve positionally.
	cursors map[cursorKey]int
	// seen marks (section, key) pairs with a settled fate, excluding them
	// from append passes.
	seen map[cursorKey]struct{}
	// reopenings counts how many occurrences of a section header are still
	// ahead in the target walk.
	reopenings map[string]int

	cur            string
	seenSections   map[string]struct{}
	sectionDeleted bool
	pendingHeader  string
}

func (st *mergeState) enterSection(name string) {
	if st.reopenings[name] > 0 {
		st.reopenings[name]--
	}
	st.cur = name
	st.seenSections[name] = struct{}{}
	st.sectionDeleted = st.rules.MatchSection(name).Kind == rules.KindDelete
	st.pendingHeader = ""
}

func (st *mergeState) emit(segment string) {
	st.out = append(st.out, segment)
}

// emitLine appends a constructed line, inserting a terminator first if the
// previous output does not end in one (a final target line may lack it).
func (st *mergeState) emitLine(line string) {
	if n := len(st.out); n > 0 && !strings.HasSuffix(st.out[n-1], "\n") {
		st.emit(st.target.LineEnding())
	}
	st.emit(line + st.target.LineEnding())
}

// flushPendingHeader emits a held-back section header once a line of the
// section turns out to survive.
func (st *mergeState) flushPendingHeader() {
	if st.pendingHeader != "" {
		st.emit(st.pendingHeader)
		st.pendingHeader = ""
	}
}

func (st *mergeState) markSeen(key string) {
	st.seen[cursorKey{section: st.cur, key: key}] = struct{}{}
}

func (st *mergeState) isSeen(key string) bool {
	_, ok := st.seen[cursorKey{section: st.cur, key: key}]
	return ok
}

// nextValue returns the source value at the consumption cursor for the
// current section and key, advancing the cursor. ok is false once the
// source's occurrences are exhausted.
func (st *mergeState) nextValue(key string) (document.SourceValue, bool) {
	values := st.source.Values(st.cur, key)
	ck := cursorKey{section: st.cur, key: key}
	if st.cursors[ck] >= len(values) {
		return document.SourceValue{}, false
	}
	v := values[st.cursors[ck]]
	st.cursors[ck]++
	return v, true
}

// remainingValues returns the unconsumed source values for a key and marks
// them consumed.
func (st *mergeState) remainingValues(section, key string) []document.SourceValue {
	values := st.source.Values(section, key)
	ck := cursorKey{section: section, key: key}
	rest := values[st.cursors[ck]:]
	st.cursors[ck] = len(values)
	return rest
}

// property handles one key/value token of the target.
func (st *mergeState) property(tok document.Token) error {
	key := st.target.Text(tok.Key)
	raw := st.target.Text(tok.Raw)
	d := st.rules.Match(st.cur, key)

	switch d.Kind {
	case rules.KindDelete:
		return nil

	case rules.KindIgnore, rules.KindPreserve:
		st.flushPendingHeader()
		st.markSeen(key)
		st.emit(raw)
		return nil

	case rules.KindSet:
		st.flushPendingHeader()
		st.markSeen(key)
		st.emit(st.rewriteValue(tok, d.Value))
		return nil

	case rules.KindSecret:
		st.flushPendingHeader()
		st.markSeen(key)
		value, err := st.resolveSecret(d, key)
		if err != nil {
			if d.OnError == rules.SecretKeepTarget {
				st.warnings = append(st.warnings, Warning{Section: st.cur, Key: key, Err: err})
				st.emit(raw)
				return nil
			}
			return err
		}
		st.emit(st.rewriteValue(tok, value))
		return nil

	case rules.KindTransform:
		st.flushPendingHeader()
		st.markSeen(key)
		src, tgt := st.transformInput(tok, key)
		line, ok := d.Transform.Apply(src, tgt)
		if ok {
			st.emit(line + st.target.Terminator(tok))
		}
		return nil

	default: // rules.KindCopy
		sv, ok := st.nextValue(key)
		if !ok {
			// Source occurrences exhausted (or key unknown to the
			// source): the target line stands.
			st.flushPendingHeader()
			st.emit(raw)
			return nil
		}
		st.flushPendingHeader()
		st.markSeen(key)
		st.emit(st.substitute(tok, sv))
		return nil
	}
}

// substitute rewrites the target line to carry the source value, keeping the
// target's key spelling, separator spacing, trailing whitespace and line
// terminator. When the two lines disagree about having a separator at all,
// the source's own line is used instead.
func (st *mergeState) substitute(tok document.Token, sv document.SourceValue) string {
	if sv.HasValue && tok.HasValue {
		prefix := st.target.Text(document.Span{Start: tok.Raw.Start, End: tok.Val.Start})
		suffix := st.target.Text(document.Span{Start: tok.Val.End, End: tok.Raw.End})
		return prefix + sv.Value + suffix
	}
	if !sv.HasValue && !tok.HasValue {
		return st.target.Text(tok.Raw)
	}
	return sv.Raw + st.target.Terminator(tok)
}

// rewriteValue replaces the value of a target line with a constructed value
// (secret or forced), preserving the original formatting. A bare key gains
// a separator.
func (st *mergeState) rewriteValue(tok document.Token, value string) string {
	if tok.HasValue {
		prefix := st.target.Text(document.Span{Start: tok.Raw.Start, End: tok.Val.Start})
		suffix := st.target.Text(document.Span{Start: tok.Val.End, End: tok.Raw.End})
		return prefix + value + suffix
	}
	prefix := st.target.Text(document.Span{Start: tok.Raw.Start, End: tok.Key.End})
	suffix := st.target.Text(document.Span{Start: tok.Key.End, End: tok.Raw.End})
	return prefix + "=" + value + suffix
}

func (st *mergeState) transformInput(tok document.Token, key string) (src, tgt *rules.Property) {
	if sv, ok := st.nextValue(key); ok {
		src = &rules.Property{
			Section:  st.cur,
			Key:      key,
			Value:    sv.Value,
			Raw:      sv.Raw,
			HasValue: sv.HasValue,
		}
	}
	raw := st.target.Text(tok.Raw)
	tgt = &rules.Property{
		Section:  st.cur,
		Key:      key,
		Value:    st.target.Text(tok.Val),
		Raw:      strings.TrimRight(raw, "\r\n"),
		HasValue: tok.HasValue,
	}
	return src, tgt
}

func (st *mergeState) resolveSecret(d rules.Directive, key string) (string, error) {
	account := strings.NewReplacer("{section}", st.cur, "{key}", key).Replace(d.Account)
	value, err := st.resolver.Lookup(d.Service, account)
	if err != nil {
		return "", &SecretLookupError{
			Section: st.cur,
			Key:     key,
			Service: d.Service,
			Account: account,
			Err:     err,
		}
	}
	return value, nil
}

// flushSection appends the lines that exist only in the source (plus forced
// keys) for the section being left. Sections governed by a non-copy section
// rule never receive appends.
func (st *mergeState) flushSection() error {
	if st.reopenings[st.cur] > 0 {
		// The section reopens further down; append there instead.
		return nil
	}
	secDir := st.rules.MatchSection(st.cur)
	if secDir.Kind == rules.KindCopy && st.source.HasSection(st.cur) {
		for _, key := range st.source.Keys(st.cur) {
			if st.isSeen(key) {
				continue
			}
			rest := st.remainingValues(st.cur, key)
			if len(rest) == 0 {
				continue
			}
			st.markSeen(key)
			if err := st.appendKey(key, rest); err != nil {
				return err
			}
		}
	}
	return st.appendForcedKeys()
}

// appendKey emits the unconsumed source occurrences of one key, still
// subject to per-key directive evaluation. With no target line to preserve,
// ignore and preserve directives simply omit the key.
func (st *mergeState) appendKey(key string, values []document.SourceValue) error {
	d := st.rules.Match(st.cur, key)
	switch d.Kind {
	case rules.KindIgnore, rules.KindPreserve, rules.KindDelete:
		return nil

	case rules.KindSet:
		st.flushPendingHeader()
		st.emitLine(key + "=" + d.Value)
		return nil

	case rules.KindSecret:
		value, err := st.resolveSecret(d, key)
		if err != nil {
			if d.OnError == rules.SecretKeepTarget {
				st.warnings = append(st.warnings, Warning{Section: st.cur, Key: key, Err: err})
				return nil
			}
			return err
		}
		st.flushPendingHeader()
		st.emitLine(key + "=" + value)
		return nil

	case rules.KindTransform:
		for i := range values {
			sv := &values[i]
			src := &rules.Property{
				Section:  st.cur,
				Key:      key,
				Value:    sv.Value,
				Raw:      sv.Raw,
				HasValue: sv.HasValue,
			}
			if line, ok := d.Transform.Apply(src, nil); ok {
				st.flushPendingHeader()
				st.emitLine(line)
			}
		}
		return nil

	default: // rules.KindCopy
		st.flushPendingHeader()
		for _, sv := range values {
			st.emitLine(sv.Raw)
		}
		return nil
	}
}

// appendForcedKeys emits set-rule keys that never showed up in the current
// section.
func (st *mergeState) appendForcedKeys() error {
	for _, f := range st.rules.ForcedKeys(st.cur) {
		if st.isSeen(f.Key) {
			continue
		}
		st.markSeen(f.Key)
		st.flushPendingHeader()
		st.emitLine(f.Key + "=" + f.Value)
	}
	return nil
}

// appendNewSections emits, after the target walk, every source section never
// visited in the target, followed by sections that exist only through set
// rules. Source section order is kept.
func (st *mergeState) appendNewSections() error {
	for _, name := range st.source.SectionOrder() {
		if name == document.NoSection {
			// Preamble keys were flushed with the first section switch.
			continue
		}
		if _, ok := st.seenSections[name]; ok {
			continue
		}
		st.enterSection(name)
		if st.rules.MatchSection(name).Kind != rules.KindCopy {
			continue
		}
		st.emitLine(st.source.Header(name))
		for _, key := range st.source.Keys(name) {
			rest := st.remainingValues(name, key)
			if len(rest) == 0 {
				continue
			}
			st.markSeen(key)
			if err := st.appendKey(key, rest); err != nil {
				return err
			}
		}
		if err := st.appendForcedKeys(); err != nil {
			return err
		}
	}

	for _, name := range st.rules.ForcedSections() {
		if _, ok := st.seenSections[name]; ok {
			continue
		}
		st.enterSection(name)
		st.emitLine("[" + name + "]")
		if err := st.appendForcedKeys(); err != nil {
			return err
		}
	}
	return nil
}
