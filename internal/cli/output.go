package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/breml/msglint/internal/hooks/prepush"
	"github.com/breml/msglint/internal/problems"
)

var (
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("240")
)

// printer renders lint results for humans.
type printer struct {
	w       io.Writer
	marker  lipgloss.Style
	problem lipgloss.Style
	summ    lipgloss.Style
	commit  lipgloss.Style
	muted   lipgloss.Style
}

func newPrinter(w io.Writer, noColor bool) *printer {
	p := &printer{
		w:       w,
		marker:  lipgloss.NewStyle(),
		problem: lipgloss.NewStyle(),
		summ:    lipgloss.NewStyle(),
		commit:  lipgloss.NewStyle(),
		muted:   lipgloss.NewStyle(),
	}

	if noColor || !isTerminal(w) {
		return p
	}

	r := lipgloss.NewRenderer(w)
	p.marker = r.NewStyle().Bold(true)
	p.problem = r.NewStyle().Foreground(colorWarning)
	p.summ = r.NewStyle().Bold(true).Foreground(colorError)
	p.commit = r.NewStyle().Bold(true)
	p.muted = r.NewStyle().Foreground(colorMuted)

	return p
}

// problems prints every problem followed by a blank line.
func (p *printer) problems(list []problems.Problem) {
	for _, problem := range list {
		_, _ = fmt.Fprintf(p.w, " %s %s\n\n", p.marker.Render("(!)"), p.problem.Render(problem.Message))
	}
}

// summary prints the number of problems, nothing if there are none.
func (p *printer) summary(n int) {
	switch {
	case n == 1:
		_, _ = fmt.Fprintln(p.w, p.summ.Render("Found 1 problem"))
	case n > 1:
		_, _ = fmt.Fprintln(p.w, p.summ.Render(fmt.Sprintf("Found %d problems", n)))
	}
}

// violations prints the problems of every failed commit of a range.
func (p *printer) violations(verr *prepush.ViolationError) {
	for _, report := range verr.Reports {
		hash := report.Commit.Hash.String()[:7]
		header := report.Result.Message.Header()

		_, _ = fmt.Fprintf(p.w, "%s %s\n", p.commit.Render(hash), p.muted.Render(header))
		p.problems(report.Result.Problems)
	}

	p.summary(verr.Problems())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func errorStyle(w io.Writer) lipgloss.Style {
	if !isTerminal(w) {
		return lipgloss.NewStyle()
	}

	return lipgloss.NewRenderer(w).NewStyle().Bold(true).Foreground(colorError)
}
