package rules

import "strings"

// Property carries one occurrence of a key as seen by a transformer.
type Property struct {
	Section  string
	Key      string
	Value    string
	Raw      string
	HasValue bool
}

// Transformer decides the output line for a key based on its source and
// target occurrences. At least one of src and tgt is non-nil. The returned
// line carries no terminator; ok == false means the line is dropped.
type Transformer interface {
	Name() string
	Apply(src, tgt *Property) (line string, ok bool)
}

// UnsortedList compares values as separator-delimited sets. When source and
// target hold the same elements in any order the target line is kept,
// avoiding diff churn from applications that rewrite list order.
type UnsortedList struct {
	Separator string
}

func (UnsortedList) Name() string { return "unsorted-list" }

func (t UnsortedList) Apply(src, tgt *Property) (string, bool) {
	if src == nil {
		return tgt.Raw, true
	}
	if tgt == nil {
		return src.Raw, true
	}
	if asSet(src.Value, t.Separator) == asSet(tgt.Value, t.Separator) {
		return tgt.Raw, true
	}
	return src.Raw, true
}

// asSet reduces a delimited list to a canonical set representation.
func asSet(value, sep string) string {
	parts := strings.Split(value, sep)
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		seen[p] = struct{}{}
	}
	uniq := make([]string, 0, len(seen))
	for p := range seen {
		uniq = append(uniq, p)
	}
	// Sort for a stable comparison key.
	for i := 1; i < len(uniq); i++ {
		for j := i; j > 0 && uniq[j] < uniq[j-1]; j-- {
			uniq[j], uniq[j-1] = uniq[j-1], uniq[j]
		}
	}
	return strings.Join(uniq, "\x00")
}

// KdeShortcut handles KDE global shortcut entries that flip between an empty
// and a literal "none" middle field ("x=none,,y" vs "x=none,none,y"). The two
// spellings are treated as equal and the target line wins.
type KdeShortcut struct{}

func (KdeShortcut) Name() string { return "kde-shortcut" }

func (KdeShortcut) Apply(src, tgt *Property) (string, bool) {
	if src == nil {
		return tgt.Raw, true
	}
	if tgt == nil {
		return src.Raw, true
	}
	s := strings.Split(src.Value, ",")
	t := strings.Split(tgt.Value, ",")
	if len(s) == 3 && len(t) == 3 &&
		s[0] == t[0] && s[2] == t[2] &&
		noneOrEmpty(s[1]) && noneOrEmpty(t[1]) {
		return tgt.Raw, true
	}
	return src.Raw, true
}

func noneOrEmpty(field string) bool {
	return field == "" || field == "none"
}
