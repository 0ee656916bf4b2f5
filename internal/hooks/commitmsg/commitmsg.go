// Package commitmsg lints a single commit message, as done by the git
// commit-msg hook.
package commitmsg

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/breml/msglint/internal/lint"
)

// commitEditMsg is the file git passes to the commit-msg hook.
const commitEditMsg = "COMMIT_EDITMSG"

// scissorsLine marks the start of the diff git appends with --verbose.
const scissorsLine = "# ------------------------ >8 ------------------------"

var (
	// ErrNoMessage is returned if no message source is available.
	ErrNoMessage = errors.New("no commit message provided")
	// ErrInteractiveStdin is returned instead of waiting for terminal input.
	ErrInteractiveStdin = errors.New("refusing to read commit message from a terminal, use --message or --file")
)

// Options selects the message source. The message flag wins over the file,
// the file wins over stdin.
type Options struct {
	Message    string
	MessageSet bool
	File       string

	// StripComments removes "#" lines and trailing blank lines the way git
	// does before committing. It is implied for COMMIT_EDITMSG.
	StripComments bool
}

// ReadMessage returns the commit message selected by opts.
func ReadMessage(opts Options, stdin io.Reader) (string, error) {
	text, err := readRaw(opts, stdin)
	if err != nil {
		return "", err
	}

	if opts.StripComments || filepath.Base(opts.File) == commitEditMsg {
		text = StripComments(text)
	}

	return text, nil
}

func readRaw(opts Options, stdin io.Reader) (string, error) {
	if opts.MessageSet {
		return opts.Message, nil
	}

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return "", fmt.Errorf("failed to read message file: %w", err)
		}

		return string(data), nil
	}

	if stdin == nil {
		return "", ErrNoMessage
	}

	if f, ok := stdin.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return "", ErrInteractiveStdin
		}
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read message from stdin: %w", err)
	}

	return string(data), nil
}

// StripComments drops comment lines, everything below the scissors line and
// trailing blank lines. A non-empty result ends with a single newline.
func StripComments(text string) string {
	var sb strings.Builder

	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(line, scissorsLine) {
			break
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		sb.WriteString(line)
	}

	stripped := strings.TrimRight(sb.String(), "\n")
	if stripped == "" {
		return ""
	}

	return stripped + "\n"
}

// Run reads the commit message and lints it.
func Run(linter *lint.Linter, opts Options, stdin io.Reader) (lint.Result, error) {
	text, err := ReadMessage(opts, stdin)
	if err != nil {
		return lint.Result{}, err
	}

	result := linter.Lint(text)
	slog.Debug("linted commit message", "source", source(opts), "problems", len(result.Problems))

	return result, nil
}

func source(opts Options) string {
	switch {
	case opts.MessageSet:
		return "flag"
	case opts.File != "":
		return opts.File
	default:
		return "stdin"
	}
}
