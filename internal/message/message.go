// Package message parses commit message text into its conventional-commit
// parts: type, scope, breaking-change marker, title, body and footers.
package message

import (
	"strings"
)

// BreakingChangeKey is the footer key that marks a breaking change.
const BreakingChangeKey = "BREAKING CHANGE"

// Footer is a single "key: value" trailer line.
type Footer struct {
	Key   string
	Value string
}

// Message is a parsed commit message.
//
// Optional fields hold the empty string when absent. Every string is a
// substring of the parsed text, nothing is copied.
type Message struct {
	// Raw is the complete text the message was parsed from.
	Raw string

	// Type is the trimmed commit type, e.g. "feat".
	Type string
	// Scope is the trimmed text between the parentheses after the type.
	Scope string
	// Title is the trimmed header text following the colon. If the header
	// does not follow the type grammar, the whole first line is the title.
	Title string
	// Body is the text between the title and the footers.
	Body string
	// Footers are in order of appearance. Keys may repeat.
	Footers []Footer

	// IsBreakingChange is set if the header carries a "!" marker or any
	// footer key is BREAKING CHANGE.
	IsBreakingChange bool
}

// Header returns the first line of the raw text.
func (m *Message) Header() string {
	header, _, _ := strings.Cut(m.Raw, "\n")
	return header
}

// FooterValues returns the values of all footers with the given key, in order.
func (m *Message) FooterValues(key string) []string {
	var values []string
	for _, footer := range m.Footers {
		if footer.Key == key {
			values = append(values, footer.Value)
		}
	}

	return values
}

// FooterText renders the footers as "key: value" lines joined by newlines.
func (m *Message) FooterText() string {
	var sb strings.Builder
	for i, footer := range m.Footers {
		if i > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString(footer.Key)
		sb.WriteString(": ")
		sb.WriteString(footer.Value)
	}

	return sb.String()
}
