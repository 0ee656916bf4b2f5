package message

// Test helpers - exported for testing only

// HeaderParts is the raw split of a first line as seen by the parser.
type HeaderParts struct {
	Matched             bool
	Type                string
	Scope               string
	Breaking            bool
	WhitespaceAfterType string
	Title               string
}

// ParseHeaderForTesting exposes parseHeader for testing.
func ParseHeaderForTesting(line string) HeaderParts {
	h := parseHeader(line)
	return HeaderParts{
		Matched:             h.matched,
		Type:                h.typ,
		Scope:               h.scope,
		Breaking:            h.breaking,
		WhitespaceAfterType: h.whitespaceAfterType,
		Title:               h.title,
	}
}

// BodyParts is the raw split of the text after the first line.
type BodyParts struct {
	Text           string
	Footers        []Footer
	Breaking       bool
	NewlinesBefore int
	NewlinesAfter  int
}

// ParseBodyForTesting exposes parseBody for testing.
func ParseBodyForTesting(text string) BodyParts {
	b := parseBody(text)
	return BodyParts{
		Text:           b.text,
		Footers:        b.footers,
		Breaking:       b.breaking,
		NewlinesBefore: b.newlinesBefore,
		NewlinesAfter:  b.newlinesAfter,
	}
}
