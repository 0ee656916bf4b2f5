package rules

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/breml/msglint/internal/config"
	"github.com/breml/msglint/internal/message"
	"github.com/breml/msglint/internal/problems"
)

// Builtin returns the built-in rules in the order they run.
func Builtin(cfg *config.Config) []Rule {
	return []Rule{
		typeEmpty(),
		typeEnum(cfg.Types),
		titleEmpty(),
		titleCase(),
		titleFullStop(),
		headerMaxLength(cfg.MaxHeaderLength),
		footerBreakingValue(),
	}
}

func typeEmpty() Rule {
	return ruleFunc{
		name:        "type-empty",
		description: "The header must start with a commit type.",
		check: func(msg *message.Message, sink *problems.Problems) {
			if msg.Type == "" {
				sink.Report("Commit message type is missing. (example: `feat: ...`)")
			}
		},
	}
}

func typeEnum(types []string) Rule {
	valid := make([]string, 0, len(types))
	for _, typ := range types {
		valid = append(valid, strings.ToLower(strings.TrimSpace(typ)))
	}

	return ruleFunc{
		name:        "type-enum",
		description: "The commit type must be one of: " + joinTypes(types) + ".",
		check: func(msg *message.Message, sink *problems.Problems) {
			if msg.Type == "" {
				return
			}

			typ := strings.ToLower(msg.Type)
			if slices.Contains(valid, typ) {
				return
			}

			// "feat add x: y" is a valid type followed by a title without colon.
			hint := ""
			isMissingColon := slices.ContainsFunc(valid, func(v string) bool {
				return strings.HasPrefix(typ, v)
			})
			if isMissingColon {
				hint = " (missing `:` after type?)"
			}

			sink.Reportf("Commit message type must be one of: %s%s", joinTypes(types), hint)
		},
	}
}

func titleEmpty() Rule {
	return ruleFunc{
		name:        "title-empty",
		description: "The header must have a title.",
		check: func(msg *message.Message, sink *problems.Problems) {
			if msg.Title == "" {
				sink.Report("Commit message title is missing.")
			}
		},
	}
}

// titleCase only looks at the first two runes, so single rune titles and
// acronyms like "API" pass.
func titleCase() Rule {
	return ruleFunc{
		name:        "title-case",
		description: "The title must not start with a capitalized word.",
		check: func(msg *message.Message, sink *problems.Problems) {
			first, size := utf8.DecodeRuneInString(msg.Title)
			if size == 0 {
				return
			}

			second, size := utf8.DecodeRuneInString(msg.Title[size:])
			if size == 0 {
				return
			}

			if unicode.IsUpper(first) && unicode.IsLower(second) {
				sink.Report("Commit message title should not start with a capitalized word.")
			}
		},
	}
}

func titleFullStop() Rule {
	return ruleFunc{
		name:        "title-full-stop",
		description: "The title must not end with a period.",
		check: func(msg *message.Message, sink *problems.Problems) {
			if strings.HasSuffix(msg.Title, ".") {
				sink.Report("Commit message title should not end with a period.")
			}
		},
	}
}

func headerMaxLength(limit int) Rule {
	description := "The header length is not limited."
	if limit > 0 {
		description = fmt.Sprintf("The header must not be longer than %d characters.", limit)
	}

	return ruleFunc{
		name:        "header-max-length",
		description: description,
		check: func(msg *message.Message, sink *problems.Problems) {
			if limit <= 0 {
				return
			}

			length := utf8.RuneCountInString(strings.TrimRight(msg.Header(), "\r"))
			if length > limit {
				sink.Reportf("Commit message header must not be longer than %d characters (found %d).", limit, length)
			}
		},
	}
}

func footerBreakingValue() Rule {
	return ruleFunc{
		name:        "footer-breaking-value",
		description: "A BREAKING CHANGE footer must describe the change.",
		check: func(msg *message.Message, sink *problems.Problems) {
			for _, value := range msg.FooterValues(message.BreakingChangeKey) {
				if strings.TrimSpace(value) == "" {
					sink.Report("BREAKING CHANGE footer must describe the change.")
				}
			}
		},
	}
}
