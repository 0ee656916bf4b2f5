// Package problems collects the human-readable findings reported while a
// commit message is parsed and checked.
package problems

import (
	"fmt"
)

// Problem is a single finding. It carries no severity or location, only the
// text that is shown to the user.
type Problem struct {
	Message string
}

// String returns the problem text.
func (p Problem) String() string {
	return p.Message
}

// Problems is an ordered, append-only collection of problems.
//
// A Problems value is not safe for concurrent use. Every message that is
// linted gets its own sink, or the caller calls Reset between messages.
type Problems struct {
	problems []Problem
}

// New returns an empty sink.
func New() *Problems {
	return &Problems{}
}

// Report appends a problem. Order of calls is preserved and duplicates are kept.
func (p *Problems) Report(message string) {
	p.problems = append(p.problems, Problem{Message: message})
}

// Reportf formats according to a format specifier and appends the result.
func (p *Problems) Reportf(format string, args ...any) {
	p.Report(fmt.Sprintf(format, args...))
}

// All returns a copy of the collected problems in report order.
func (p *Problems) All() []Problem {
	if len(p.problems) == 0 {
		return nil
	}

	out := make([]Problem, len(p.problems))
	copy(out, p.problems)

	return out
}

// Strings returns the problem texts in report order.
func (p *Problems) Strings() []string {
	if len(p.problems) == 0 {
		return nil
	}

	out := make([]string, 0, len(p.problems))
	for _, problem := range p.problems {
		out = append(out, problem.Message)
	}

	return out
}

// Reset removes all collected problems so the sink can be reused for the
// next message.
func (p *Problems) Reset() {
	p.problems = p.problems[:0]
}
