// Package output renders command results for terminals, pipes and machines.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Mode selects how a command prints its result.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Styles are the lipgloss styles used for text output.
type Styles struct {
	Header1 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
}

// ColorStyles returns the styles used on a terminal.
func ColorStyles() *Styles {
	return &Styles{
		Header1: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		Header1: plain,
		Bold:    plain,
		Muted:   plain,
		Success: plain,
		Warning: plain,
	}
}

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	mode   Mode
	tty    bool
	styles *Styles
}

// NewRenderer creates a renderer. An empty or unknown mode behaves like ModeAuto.
func NewRenderer(out io.Writer, mode Mode) *Renderer {
	tty := IsTerminal(out)
	styles := PlainStyles()
	if tty {
		styles = ColorStyles()
	}
	return &Renderer{
		out:    out,
		mode:   mode,
		tty:    tty,
		styles: styles,
	}
}

// EffectiveMode resolves ModeAuto: text on a terminal, markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	switch r.mode {
	case ModeText, ModeMarkdown, ModeJSON:
		return r.mode
	}
	if r.tty {
		return ModeText
	}
	return ModeMarkdown
}

// Styles returns the active styles.
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Writer returns the main output writer.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// IsTTY reports whether the main output is a terminal.
func (r *Renderer) IsTTY() bool {
	return r.tty
}

// Println writes a line to the main output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to the main output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
