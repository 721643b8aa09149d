package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// ConsoleNotifier delivers user-facing notifications as single styled lines
// on the CLI's error stream. It implements [notify.Notifier].
type ConsoleNotifier struct {
	w         io.Writer
	warnStyle lipgloss.Style
	errStyle  lipgloss.Style
}

func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	lg := lipgloss.NewRenderer(w)

	return &ConsoleNotifier{
		w:         w,
		warnStyle: lg.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		errStyle:  lg.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}

func (n *ConsoleNotifier) Warn(_ context.Context, msg string) {
	mustN(fmt.Fprintf(n.w, "%s %s\n", n.warnStyle.Render("warning:"), msg))
}

func (n *ConsoleNotifier) Error(_ context.Context, msg string) {
	mustN(fmt.Fprintf(n.w, "%s %s\n", n.errStyle.Render("error:"), msg))
}
