package document

// NoSection is the pseudo section name used for keys that appear before the
// first section header. Using a printable name (instead of an empty string)
// lets rule patterns match the preamble explicitly.
const NoSection = "<NO_SECTION>"

// TokenKind identifies the structural role of one line in an INI document.
type TokenKind int

const (
	// KindSection is a "[name]" header line.
	KindSection TokenKind = iota
	// KindProperty is a "key = value" line, or a bare key without separator.
	KindProperty
	// KindComment is a line whose first non-blank character is ';' or '#'.
	KindComment
	// KindBlank is a line containing only whitespace.
	KindBlank
)

func (k TokenKind) String() string {
	switch k {
	case KindSection:
		return "section"
	case KindProperty:
		return "property"
	case KindComment:
		return "comment"
	case KindBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// Span is a half-open [Start, End) byte range into a document's backing text.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Token is one structural item of a parsed document. It never owns text;
// all fields are spans into the arena held by the Document that produced it.
//
// Raw covers the complete line including its terminator, so concatenating
// the Raw spans of all tokens reproduces the input byte for byte.
type Token struct {
	Kind TokenKind

	// Raw is the full line including the line terminator (if any).
	Raw Span

	// Name is the section name for KindSection, trimmed.
	Name Span

	// Key is the key for KindProperty, trimmed.
	Key Span

	// Val is the value for KindProperty, trimmed. Only meaningful when
	// HasValue is true. For an empty value ("key =") the span is empty but
	// positioned where a value would be written.
	Val Span

	// HasValue reports whether the property line contained a separator.
	// Bare keys without '=' are valid and have HasValue == false.
	HasValue bool

	// Line is the 1-based line number, used for error reporting.
	Line int
}
