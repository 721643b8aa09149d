package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/lintelhq/lintel/pkg/engine"
	"github.com/lintelhq/lintel/pkg/lint"
)

// Renderer writes check results to the terminal. When the output is not a
// terminal it emits plain machine-friendly lines instead of styled output.
type Renderer struct {
	w        io.Writer
	location lipgloss.Style
	check    lipgloss.Style
	summary  lipgloss.Style
	severity map[engine.Severity]lipgloss.Style
	plain    bool
}

func NewRenderer(w io.Writer) *Renderer {
	lg := lipgloss.NewRenderer(w)

	plain := true
	if f, ok := w.(*os.File); ok {
		plain = !term.IsTerminal(int(f.Fd()))
	}

	return &Renderer{
		w:        w,
		plain:    plain,
		location: lg.NewStyle().Faint(true),
		check:    lg.NewStyle().Faint(true),
		summary:  lg.NewStyle().Bold(true),
		severity: map[engine.Severity]lipgloss.Style{
			engine.SeverityError:   lg.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			engine.SeverityWarning: lg.NewStyle().Foreground(lipgloss.Color("11")),
			engine.SeverityInfo:    lg.NewStyle().Foreground(lipgloss.Color("12")),
		},
	}
}

// Render writes every violation of the pass followed by a one-line summary.
func (r *Renderer) Render(result *lint.Result) {
	for _, v := range result.Violations {
		r.renderViolation(v)
	}

	if r.plain {
		mustN(fmt.Fprintln(r.w, result.Summary()))

		return
	}

	mustN(fmt.Fprintln(r.w, r.summary.Render(result.Summary())))

	if result.Skipped > 0 {
		mustN(fmt.Fprintf(r.w, "%d files skipped because their ruleset could not be loaded\n", result.Skipped))
	}
}

func (r *Renderer) renderViolation(v engine.Violation) {
	pos := v.File + ":" + strconv.Itoa(v.Line)
	if v.Column > 0 {
		pos += ":" + strconv.Itoa(v.Column)
	}

	if r.plain {
		mustN(fmt.Fprintf(r.w, "%s: %s: %s (%s)\n", pos, v.Severity, v.Message, v.Check))

		return
	}

	sev, ok := r.severity[v.Severity]
	if !ok {
		sev = r.summary
	}

	mustN(fmt.Fprintf(r.w, "%s  %s  %s  %s\n",
		r.location.Render(pos),
		sev.Render(string(v.Severity)),
		v.Message,
		r.check.Render("("+v.Check+")"),
	))
}

// RenderError reports a failed watch-triggered pass without stopping the
// watch loop.
func (r *Renderer) RenderError(err error) {
	mustN(fmt.Fprintf(r.w, "check failed: %v\n", err))
}

// RenderReload notes that a ruleset change invalidated the cached checkers.
func (r *Renderer) RenderReload(path string, at time.Time) {
	mustN(fmt.Fprintf(r.w, "%s changed at %s, re-checking\n", path, at.Format(time.TimeOnly)))
}
