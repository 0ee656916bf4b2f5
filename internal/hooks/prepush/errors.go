package prepush

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/breml/msglint/internal/lint"
)

// CommitReport is the lint result of a single commit.
type CommitReport struct {
	Commit *object.Commit
	Result lint.Result
}

// ViolationError is returned when commits in a range have problems.
type ViolationError struct {
	Ref     string
	Reports []CommitReport
}

// Error creates a detailed message for all failed commits.
func (e *ViolationError) Error() string {
	var sb strings.Builder

	for i, report := range e.Reports {
		if i > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString(fmt.Sprintf("Commit %s in %s failed validation:\n", shortHash(report.Commit), e.Ref))
		sb.WriteString(fmt.Sprintf("Commit message: %s\n\n", getFirstLine(report.Commit.Message)))

		sb.WriteString("Problems:\n")
		for j, problem := range report.Result.Problems {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", j+1, problem.Message))
		}
	}

	return sb.String()
}

// Problems returns the total number of problems over all reports.
func (e *ViolationError) Problems() int {
	n := 0
	for _, report := range e.Reports {
		n += len(report.Result.Problems)
	}

	return n
}

func shortHash(commit *object.Commit) string {
	return commit.Hash.String()[:7]
}

// getFirstLine extracts and returns the first line of a commit message.
func getFirstLine(message string) string {
	firstLine, _, _ := strings.Cut(message, "\n")
	return strings.TrimSpace(firstLine)
}
