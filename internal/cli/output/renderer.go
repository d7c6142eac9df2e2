// Package output renders command results for terminals, pipes, and
// machines. Mode auto picks styled text on a TTY and markdown otherwise;
// JSON is always explicit.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Mode selects the output format.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Renderer writes formatted output to an out/err stream pair.
type Renderer struct {
	out  io.Writer
	err  io.Writer
	mode Mode
}

// NewRenderer creates a renderer. An unknown mode falls back to auto.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	switch mode {
	case ModeText, ModeMarkdown, ModeJSON:
	default:
		mode = ModeAuto
	}
	return &Renderer{out: out, err: errOut, mode: mode}
}

// EffectiveMode resolves ModeAuto against the output stream: styled text
// on a terminal, markdown when piped.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if termenv.NewOutput(r.out).ColorProfile() != termenv.Ascii {
		return ModeText
	}
	return ModeMarkdown
}

// Out returns the underlying output stream, for callers that render
// tables directly.
func (r *Renderer) Out() io.Writer { return r.out }

// Println writes a plain line.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Header writes a section heading. In text mode it is bold; in markdown it
// becomes a #-prefixed heading.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		return
	}
	r.Println(headerStyle.Render(text))
}

// Success writes a success line to the output stream.
func (r *Renderer) Success(text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(text)
		return
	}
	r.Println(successStyle.Render("✓ " + text))
}

// Warning writes a warning line to the error stream.
func (r *Renderer) Warning(text string) {
	if r.EffectiveMode() == ModeMarkdown {
		_, _ = fmt.Fprintln(r.err, "Warning: "+text)
		return
	}
	_, _ = fmt.Fprintln(r.err, warnStyle.Render("! "+text))
}

// Error writes an error line to the error stream.
func (r *Renderer) Error(text string) {
	if r.EffectiveMode() == ModeMarkdown {
		_, _ = fmt.Fprintln(r.err, "Error: "+text)
		return
	}
	_, _ = fmt.Fprintln(r.err, errorStyle.Render("✗ "+text))
}

// Muted writes a de-emphasized line.
func (r *Renderer) Muted(text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(text)
		return
	}
	r.Println(mutedStyle.Render(text))
}

// StatusLine writes a name with a pass/fail marker and optional detail.
// Status is "success", "failed", "warn", or anything else for neutral.
func (r *Renderer) StatusLine(name, status, detail string) {
	var marker string
	switch {
	case r.EffectiveMode() == ModeMarkdown:
		switch status {
		case "success":
			marker = "- [x]"
		case "failed":
			marker = "- [ ]"
		default:
			marker = "-"
		}
	case status == "success":
		marker = successStyle.Render("✓")
	case status == "failed":
		marker = errorStyle.Render("✗")
	case status == "warn":
		marker = warnStyle.Render("!")
	default:
		marker = "·"
	}

	line := fmt.Sprintf("%s %s", marker, name)
	if detail != "" {
		line += " " + mutedStyle.Render("("+detail+")")
	}
	r.Println(line)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatHeader renders a markdown heading.
func FormatHeader(level int, text string) string {
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue renders a markdown key/value line.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("**%s:** %s", key, value)
}
