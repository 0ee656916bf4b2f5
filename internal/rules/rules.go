// Package rules checks a parsed commit message against an ordered catalog
// of independent style rules.
package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/breml/msglint/internal/config"
	"github.com/breml/msglint/internal/message"
	"github.com/breml/msglint/internal/problems"
)

// Rule is a single check. A rule inspects the message and reports zero or
// more problems. Rules never depend on each other.
type Rule interface {
	Name() string
	Description() string
	Check(msg *message.Message, sink *problems.Problems)
}

// Engine runs rules in a fixed order. An Engine holds no per-message state
// and can be shared between goroutines as long as every goroutine uses its
// own sink.
type Engine struct {
	rules []Rule
}

// New creates an engine with the built-in rules, minus those disabled in the
// config, followed by the configured pattern rules.
func New(cfg *config.Config) (*Engine, error) {
	builtin := Builtin(cfg)

	for _, name := range cfg.Disable {
		known := slices.ContainsFunc(builtin, func(r Rule) bool {
			return r.Name() == name
		})
		if !known {
			return nil, fmt.Errorf("cannot disable unknown rule %q", name)
		}
	}

	rules := make([]Rule, 0, len(builtin)+len(cfg.Rules))
	for _, rule := range builtin {
		if slices.Contains(cfg.Disable, rule.Name()) {
			continue
		}

		rules = append(rules, rule)
	}

	for i := range cfg.Rules {
		if cfg.Rules[i].Regexp() == nil {
			return nil, fmt.Errorf("pattern rule %q has not been validated", cfg.Rules[i].Name)
		}

		rules = append(rules, patternRule{rule: cfg.Rules[i]})
	}

	return &Engine{rules: rules}, nil
}

// Check runs all rules against msg in order.
func (e *Engine) Check(msg *message.Message, sink *problems.Problems) {
	for _, rule := range e.rules {
		rule.Check(msg, sink)
	}
}

// Rules returns the rules in the order they run.
func (e *Engine) Rules() []Rule {
	return slices.Clone(e.rules)
}

// patternRule is a user defined deny or require rule.
type patternRule struct {
	rule config.PatternRule
}

func (r patternRule) Name() string {
	return r.rule.Name
}

func (r patternRule) Description() string {
	if r.rule.Message != "" {
		return r.rule.Message
	}

	return violationMessage(r.rule)
}

func (r patternRule) Check(msg *message.Message, sink *problems.Problems) {
	text := textForScope(r.rule.Scope, msg)
	matched := r.rule.Regexp().MatchString(text)

	violated := (r.rule.Type == config.RuleTypeDeny && matched) ||
		(r.rule.Type == config.RuleTypeRequire && !matched)
	if !violated {
		return
	}

	if r.rule.Message != "" {
		sink.Report(r.rule.Message)
		return
	}

	sink.Report(violationMessage(r.rule))
}

// violationMessage generates a default message based on rule type.
func violationMessage(rule config.PatternRule) string {
	if rule.Type == config.RuleTypeDeny {
		return fmt.Sprintf("Pattern %q must not match in %s.", rule.Pattern, rule.Scope)
	}

	return fmt.Sprintf("Pattern %q must match in %s.", rule.Pattern, rule.Scope)
}

func textForScope(scope config.Scope, msg *message.Message) string {
	switch scope {
	case config.ScopeTitle:
		return msg.Title

	case config.ScopeBody:
		return msg.Body

	case config.ScopeFooter:
		return msg.FooterText()

	case config.ScopeMessage:
		return msg.Raw

	default:
		return ""
	}
}

// ruleFunc adapts a plain function to the Rule interface.
type ruleFunc struct {
	name        string
	description string
	check       func(msg *message.Message, sink *problems.Problems)
}

func (r ruleFunc) Name() string {
	return r.name
}

func (r ruleFunc) Description() string {
	return r.description
}

func (r ruleFunc) Check(msg *message.Message, sink *problems.Problems) {
	r.check(msg, sink)
}

// joinTypes renders the accepted types for problem messages.
func joinTypes(types []string) string {
	return strings.Join(types, ", ")
}
