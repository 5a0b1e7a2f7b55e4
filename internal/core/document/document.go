package document

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed line encountered during tokenization.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Document is a lossless parse of one INI text. The raw input is kept as a
// single arena string and every token references it by span, so untouched
// regions can be emitted later without copying or reformatting.
type Document struct {
	src        string
	tokens     []Token
	lineEnding string
}

// Parse tokenizes text into a Document. It fails with a *ParseError on the
// first malformed line; no partial document is returned.
func Parse(text string) (*Document, error) {
	d := &Document{src: text}

	pos := 0
	line := 0
	for pos < len(text) {
		line++

		rawEnd := len(text)
		contentEnd := rawEnd
		if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
			rawEnd = pos + nl + 1
			contentEnd = rawEnd - 1
			if contentEnd > pos && text[contentEnd-1] == '\r' {
				contentEnd--
			}
			if d.lineEnding == "" {
				d.lineEnding = text[contentEnd:rawEnd]
			}
		}

		tok, err := lexLine(text, pos, contentEnd, rawEnd, line)
		if err != nil {
			return nil, err
		}
		d.tokens = append(d.tokens, tok)
		pos = rawEnd
	}

	if d.lineEnding == "" {
		d.lineEnding = "\n"
	}
	return d, nil
}

// Tokens returns the token stream in document order. The returned slice is
// shared; callers must not modify it.
func (d *Document) Tokens() []Token {
	return d.tokens
}

// Raw returns the complete original text backing the document.
func (d *Document) Raw() string {
	return d.src
}

// Text resolves a span against the document's arena.
func (d *Document) Text(s Span) string {
	return d.src[s.Start:s.End]
}

// LineEnding returns the first line terminator seen in the document
// ("\n" or "\r\n"), defaulting to "\n" for single-line input. It is used
// when constructing lines that have no original to inherit a terminator from.
func (d *Document) LineEnding() string {
	return d.lineEnding
}

// Terminator returns the line terminator of the given token ("" for a final
// line without one).
func (d *Document) Terminator(t Token) string {
	raw := d.Text(t.Raw)
	if strings.HasSuffix(raw, "\r\n") {
		return "\r\n"
	}
	if strings.HasSuffix(raw, "\n") {
		return "\n"
	}
	return ""
}

// lexLine classifies the line occupying [start, rawEnd) with visible content
// in [start, contentEnd).
func lexLine(src string, start, contentEnd, rawEnd, line int) (Token, error) {
	tok := Token{
		Raw:  Span{Start: start, End: rawEnd},
		Line: line,
	}

	content := trimSpan(src, start, contentEnd)
	if content.Len() == 0 {
		tok.Kind = KindBlank
		return tok, nil
	}

	switch src[content.Start] {
	case ';', '#':
		tok.Kind = KindComment
		return tok, nil
	case '[':
		if src[content.End-1] != ']' {
			return Token{}, &ParseError{Line: line, Message: "unterminated section header"}
		}
		tok.Kind = KindSection
		tok.Name = trimSpan(src, content.Start+1, content.End-1)
		return tok, nil
	}

	tok.Kind = KindProperty
	eq := strings.IndexByte(src[content.Start:content.End], '=')
	if eq < 0 {
		// Bare key without separator, seen in the wild (e.g. KDE configs).
		tok.Key = content
		return tok, nil
	}

	sep := content.Start + eq
	tok.Key = trimSpan(src, content.Start, sep)
	if tok.Key.Len() == 0 {
		return Token{}, &ParseError{Line: line, Message: "property line with empty key"}
	}
	tok.HasValue = true
	tok.Val = trimSpan(src, sep+1, content.End)
	if tok.Val.Len() == 0 {
		// Empty value: anchor the span at end of content so a substituted
		// value lands after the separator and any spacing.
		valStart := sep + 1
		for valStart < content.End && (src[valStart] == ' ' || src[valStart] == '\t') {
			valStart++
		}
		tok.Val = Span{Start: valStart, End: valStart}
	}
	return tok, nil
}

// trimSpan shrinks [start, end) to exclude leading and trailing spaces/tabs.
func trimSpan(src string, start, end int) Span {
	for start < end && (src[start] == ' ' || src[start] == '\t') {
		start++
	}
	for end > start && (src[end-1] == ' ' || src[end-1] == '\t') {
		end--
	}
	return Span{Start: start, End: end}
}
