// Package lint parses a commit message and checks it against the rules.
package lint

import (
	"fmt"

	"github.com/breml/msglint/internal/config"
	"github.com/breml/msglint/internal/message"
	"github.com/breml/msglint/internal/problems"
	"github.com/breml/msglint/internal/rules"
)

// Result is the outcome of linting a single message.
type Result struct {
	Message  message.Message
	Problems []problems.Problem
}

// OK reports whether no problem was found.
func (r Result) OK() bool {
	return len(r.Problems) == 0
}

// Linter lints commit messages. It is safe for concurrent use.
type Linter struct {
	engine *rules.Engine
}

// New creates a linter for the given configuration.
func New(cfg *config.Config) (*Linter, error) {
	engine, err := rules.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up rules: %w", err)
	}

	return &Linter{engine: engine}, nil
}

// Rules returns the rules the linter runs, in order.
func (l *Linter) Rules() []rules.Rule {
	return l.engine.Rules()
}

// Lint parses text and runs all rules. Structural problems found by the
// parser come first, followed by the rule problems in rule order.
func (l *Linter) Lint(text string) Result {
	sink := problems.New()

	msg := message.Parse(text, sink)
	l.engine.Check(&msg, sink)

	return Result{
		Message:  msg,
		Problems: sink.All(),
	}
}
