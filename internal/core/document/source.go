package document

// SourceValue is one occurrence of a key in the source document.
type SourceValue struct {
	// Raw is the original line without its terminator.
	Raw string
	// Value is the trimmed value. Empty for bare keys.
	Value string
	// HasValue reports whether the line contained a separator.
	HasValue bool
}

type sectionKey struct {
	section string
	key     string
}

// SourceIndex provides random access to the entries of a parsed source
// document: values per (section, key) in document order (duplicates
// preserved), the set of distinct keys per section in first-seen order, and
// the section discovery order.
//
// The index is immutable after construction and may be shared by concurrent
// merge runs; consumption cursors live in the merge state, not here.
type SourceIndex struct {
	order   []string
	headers map[string]string
	keys    map[string][]string
	values  map[sectionKey][]SourceValue
}

// BuildSourceIndex indexes a parsed source document.
func BuildSourceIndex(doc *Document) *SourceIndex {
	idx := &SourceIndex{
		headers: make(map[string]string),
		keys:    make(map[string][]string),
		values:  make(map[sectionKey][]SourceValue),
	}

	cur := NoSection
	idx.order = append(idx.order, NoSection)
	idx.headers[NoSection] = ""

	for _, tok := range doc.Tokens() {
		switch tok.Kind {
		case KindSection:
			name := doc.Text(tok.Name)
			if _, ok := idx.headers[name]; !ok {
				idx.order = append(idx.order, name)
				idx.headers[name] = trimTerminator(doc.Text(tok.Raw))
			}
			cur = name
		case KindProperty:
			key := doc.Text(tok.Key)
			sk := sectionKey{section: cur, key: key}
			if _, ok := idx.values[sk]; !ok {
				idx.keys[cur] = append(idx.keys[cur], key)
			}
			idx.values[sk] = append(idx.values[sk], SourceValue{
				Raw:      trimTerminator(doc.Text(tok.Raw)),
				Value:    doc.Text(tok.Val),
				HasValue: tok.HasValue,
			})
		}
	}
	return idx
}

// HasSection reports whether the source contains the named section. The
// preamble pseudo section counts only if it holds at least one key.
func (idx *SourceIndex) HasSection(name string) bool {
	if name == NoSection {
		return len(idx.keys[NoSection]) > 0
	}
	_, ok := idx.headers[name]
	return ok
}

// Values returns every occurrence of key within section, in document order.
// The returned slice is shared; callers must not modify it.
func (idx *SourceIndex) Values(section, key string) []SourceValue {
	return idx.values[sectionKey{section: section, key: key}]
}

// Keys returns the distinct keys of a section in first-seen order.
func (idx *SourceIndex) Keys(section string) []string {
	return idx.keys[section]
}

// SectionOrder returns section names as first seen in the source, with the
// preamble pseudo section always first.
func (idx *SourceIndex) SectionOrder() []string {
	return idx.order
}

// Header returns the raw header line of a section (without terminator).
func (idx *SourceIndex) Header(section string) string {
	return idx.headers[section]
}

func trimTerminator(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
