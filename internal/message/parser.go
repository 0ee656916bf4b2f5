package message

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/breml/msglint/internal/problems"
)

// header is the first line of a message split along the type grammar
//
//	^([a-zA-Z\-_\s/]+)(\([a-zA-Z\-_\s/]+\))?(!)?(\s*):
//
// followed by the title.
type header struct {
	matched             bool
	typ                 string
	scope               string // including the parentheses
	breaking            bool
	whitespaceAfterType string
	title               string
}

// body is the part of a message after the first line.
type body struct {
	text           string
	footers        []Footer
	breaking       bool
	newlinesBefore int
	newlinesAfter  int
}

// Parse parses text into a Message. Structural problems found while
// splitting the message are reported to sink.
//
// Parse never fails. Every input, including the empty string, yields a
// Message, possibly with all optional fields empty.
func Parse(text string, sink *problems.Problems) Message {
	firstLine, rest, _ := strings.Cut(text, "\n")

	h := parseHeader(strings.TrimSuffix(firstLine, "\r"))
	b := parseBody(rest)

	findProblemsInHeader(h, sink)
	findProblemsInBody(h, b, sink)

	return Message{
		Raw:              text,
		Type:             strings.TrimSpace(h.typ),
		Scope:            strings.TrimSpace(stripParens(h.scope)),
		Title:            strings.TrimSpace(h.title),
		Body:             b.text,
		Footers:          b.footers,
		IsBreakingChange: h.breaking || b.breaking,
	}
}

func parseHeader(line string) header {
	unmatched := header{title: line}

	typeEnd := scanRun(line, 0, isTypeRune)
	if typeEnd == 0 {
		return unmatched
	}

	pos := typeEnd

	// The scope is optional, a broken scope makes the whole header unmatched.
	scopeStart := pos
	if pos < len(line) && line[pos] == '(' {
		inner := scanRun(line, pos+1, isTypeRune)
		if inner > pos+1 && inner < len(line) && line[inner] == ')' {
			pos = inner + 1
		}
	}

	scopeEnd := pos

	breaking := false
	if pos < len(line) && line[pos] == '!' {
		breaking = true
		pos++
	}

	wsStart := pos
	pos = scanRun(line, pos, unicode.IsSpace)

	if pos >= len(line) || line[pos] != ':' {
		return unmatched
	}

	return header{
		matched:             true,
		typ:                 line[:typeEnd],
		scope:               line[scopeStart:scopeEnd],
		breaking:            breaking,
		whitespaceAfterType: line[wsStart:pos],
		title:               line[pos+1:],
	}
}

func findProblemsInHeader(h header, sink *problems.Problems) {
	if !h.matched {
		return
	}

	typeNotBlank := strings.TrimSpace(h.typ) != ""

	if typeNotBlank && strings.HasPrefix(h.typ, " ") {
		sink.Report("Whitespace before commit message type.")
	}

	if h.whitespaceAfterType != "" || (typeNotBlank && strings.HasSuffix(h.typ, " ")) {
		sink.Report("Whitespace after commit message type.")
	}

	if strings.HasPrefix(h.scope, "( ") {
		sink.Report("Whitespace before commit message scope.")
	}

	if strings.HasSuffix(h.scope, " )") {
		sink.Report("Whitespace after commit message scope.")
	}

	// A blank title is not a structural problem, the rules report it.
	if strings.TrimSpace(h.title) == "" {
		return
	}

	if !strings.HasPrefix(h.title, " ") {
		sink.Report("No space before commit message title.")
	} else if strings.HasPrefix(h.title[1:], " ") {
		sink.Report("Whitespace before commit message title.")
	}

	if strings.HasSuffix(h.title, " ") {
		sink.Report("Whitespace after commit message title.")
	}
}

func parseBody(text string) body {
	newlinesBefore, bodyStart := leadingBreaks(text)

	// Walk the lines backwards, collecting footer candidates until the first
	// line that is empty or has no key. A trailing newline does not start
	// another line.
	var reversed []string
	footerStart := -1
	end := len(text)
	if strings.HasSuffix(text, "\n") {
		end--
	}

	for end >= 0 {
		start := strings.LastIndexByte(text[:end], '\n') + 1
		line := strings.TrimSuffix(text[start:end], "\r")
		if !isFooterLine(line) {
			break
		}

		reversed = append(reversed, line)
		footerStart = start
		end = start - 1
	}

	// The line break ending the last body line belongs to the boundary, so the
	// trailing line breaks left on the body are the blank lines before the
	// footers.
	bodyEnd := len(text)
	if footerStart >= 0 {
		bodyEnd = footerStart - 1
		if bodyEnd > bodyStart && text[bodyEnd-1] == '\r' {
			bodyEnd--
		}

		bodyEnd = max(bodyEnd, bodyStart)
	}

	bodyText := text[bodyStart:bodyEnd]
	newlinesAfter, trailing := trailingBreaks(bodyText)

	// Footer candidates directly below body text are part of the body.
	if bodyText != "" && newlinesAfter == 0 {
		bodyText = text[bodyStart:]
		reversed = nil
		newlinesAfter, trailing = trailingBreaks(bodyText)
	}

	footers := make([]Footer, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		footers = append(footers, parseFooter(reversed[i]))
	}

	breaking := false
	for _, footer := range footers {
		if footer.Key == BreakingChangeKey {
			breaking = true
			break
		}
	}

	return body{
		text:           bodyText[:len(bodyText)-trailing],
		footers:        footers,
		breaking:       breaking,
		newlinesBefore: newlinesBefore,
		newlinesAfter:  newlinesAfter,
	}
}

func findProblemsInBody(h header, b body, sink *problems.Problems) {
	if b.text != "" && b.newlinesBefore != 1 {
		sink.Report("Commit message title and body must be separated by a single newline.")
	}

	if b.text != "" && b.newlinesAfter != 1 {
		sink.Report("Commit message body and footer must be separated by a single newline.")
	}

	if h.breaking && !b.breaking {
		sink.Report(
			"Breaking changes should be explained in a footer after the commit message. (example: `BREAKING CHANGE: ...`)",
		)
	}

	if b.breaking && !h.breaking {
		sink.Report(
			"Breaking changes should be marked with `!` after the commit message type. (example: `feat!: ...`)",
		)
	}
}

// isFooterLine reports whether line looks like "key:value" with a non-empty key.
func isFooterLine(line string) bool {
	return strings.IndexByte(line, ':') > 0
}

// parseFooter splits a footer line on its first colon. At most one space
// after the colon is dropped.
func parseFooter(line string) Footer {
	key, value, _ := strings.Cut(line, ":")
	return Footer{
		Key:   key,
		Value: strings.TrimPrefix(value, " "),
	}
}

func isTypeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == '-', r == '_', r == '/':
		return true
	default:
		return unicode.IsSpace(r)
	}
}

// scanRun returns the offset of the first rune at or after pos that does not
// satisfy accept.
func scanRun(s string, pos int, accept func(rune) bool) int {
	for pos < len(s) {
		r, size := utf8.DecodeRuneInString(s[pos:])
		if r == utf8.RuneError && size <= 1 {
			return pos
		}

		if !accept(r) {
			return pos
		}

		pos += size
	}

	return pos
}

func stripParens(scope string) string {
	if len(scope) < 2 {
		return ""
	}

	return scope[1 : len(scope)-1]
}

// leadingBreaks counts the line breaks ("\n" or "\r\n") at the start of s
// and returns their count and length in bytes.
func leadingBreaks(s string) (int, int) {
	n, pos := 0, 0
	for {
		switch {
		case strings.HasPrefix(s[pos:], "\n"):
			pos++
		case strings.HasPrefix(s[pos:], "\r\n"):
			pos += 2
		default:
			return n, pos
		}

		n++
	}
}

// trailingBreaks counts the line breaks ("\n" or "\r\n") at the end of s
// and returns their count and length in bytes.
func trailingBreaks(s string) (int, int) {
	n, end := 0, len(s)
	for end > 0 && s[end-1] == '\n' {
		end--
		if end > 0 && s[end-1] == '\r' {
			end--
		}

		n++
	}

	return n, len(s) - end
}
