package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/tf2director/tf2director/internal/director"
	direrrors "github.com/tf2director/tf2director/internal/errors"
	"github.com/tf2director/tf2director/internal/server"
)

var (
	okColor      = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#F87171") // Red
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray

	serverStyle  = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(okColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// palette renders styles only when writing to a terminal, so piped output
// and log files stay plain.
type palette struct {
	color bool
}

func paletteFor(w io.Writer) palette {
	f, ok := w.(*os.File)
	return palette{color: ok && term.IsTerminal(int(f.Fd()))}
}

func (p palette) render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p palette) outcome(o server.Outcome, s string) string {
	switch {
	case o == server.OutcomeOK:
		return p.render(okStyle, s)
	case o.Precondition():
		return p.render(warningStyle, s)
	default:
		return p.render(errorStyle, s)
	}
}

// reporter prints one line per server result. Successful read-only actions
// have already written their output and are not echoed.
func reporter(w io.Writer) func(director.Result) {
	p := paletteFor(w)
	return func(r director.Result) {
		if r.Outcome == server.OutcomeOK && !mutating(r.Action) {
			return
		}

		name := p.render(serverStyle, r.Server)
		switch {
		case r.Outcome == server.OutcomeOK:
			fmt.Fprintf(w, "%s: %s\n", name, p.outcome(r.Outcome, r.Note))
		case r.Outcome.Precondition():
			fmt.Fprintf(w, "%s: %s %s\n", name, p.outcome(r.Outcome, r.Outcome.String()), p.render(mutedStyle, "(skipped)"))
		case direrrors.IsUserFacing(r.Err):
			fmt.Fprintf(w, "%s: %s\n", name, p.outcome(r.Outcome, r.Err.Error()))
		default:
			fmt.Fprintf(w, "%s: %s %s\n", name, p.outcome(r.Outcome, r.Err.Error()), p.render(mutedStyle, "(see 'tf2director logs')"))
		}
	}
}

func mutating(action string) bool {
	switch action {
	case director.ActionStart, director.ActionStop, director.ActionRestart, director.ActionUpdate:
		return true
	}
	return false
}
