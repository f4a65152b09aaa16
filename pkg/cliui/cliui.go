// Package cliui provides terminal output helpers for pitch commands:
// spinners around slow calls, speaker labels, markdown answers and
// compact tables of retrieved records.
package cliui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/papercomputeco/pitch/pkg/vector"
)

var (
	SuccessMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark       = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	UserStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	AssistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	WarnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	KeyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ValueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle      = lipgloss.NewStyle().Bold(true)
	HeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	DimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Plain reports whether output should skip styling: not a terminal, or a
// terminal with no colour support.
func Plain(f *os.File) bool {
	if !IsTerminal(f) {
		return true
	}
	return termenv.NewOutput(f).EnvColorProfile() == termenv.Ascii
}

// Width returns the terminal width of f, or fallback when f is not a
// terminal.
func Width(f *os.File, fallback int) int {
	if !IsTerminal(f) {
		return fallback
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// Step prints a spinner while fn runs, then a ✓ or ✗ with the elapsed time.
// When w is not a terminal only the final line is written.
func Step(w io.Writer, msg string, fn func() error) error {
	animate := false
	if f, ok := w.(*os.File); ok {
		animate = IsTerminal(f)
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	var mu sync.Mutex

	go func() {
		defer close(stopped)
		if !animate {
			<-done
			return
		}

		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)
	<-stopped

	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n", Mark(err), msg, StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))))
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders an answer for terminal display. plain selects the
// colourless style used for pipes and dumb terminals.
func RenderMarkdown(content string, width int, plain bool) (string, error) {
	style := glamour.WithAutoStyle()
	if plain {
		style = glamour.WithStandardStyle("notty")
	}
	return renderMarkdown(content, width, style)
}

// MarkdownStyle picks a fixed glamour style for f. Full screen programs
// resolve it before they take over the terminal.
func MarkdownStyle(f *os.File) string {
	switch {
	case Plain(f):
		return "notty"
	case termenv.NewOutput(f).HasDarkBackground():
		return "dark"
	default:
		return "light"
	}
}

// RenderMarkdownStyle renders content with a named glamour style.
func RenderMarkdownStyle(content string, width int, style string) (string, error) {
	return renderMarkdown(content, width, glamour.WithStandardStyle(style))
}

func renderMarkdown(content string, width int, style glamour.TermRendererOption) (string, error) {
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return strings.TrimRight(rendered, "\n") + "\n", nil
}

// Results formats retrieved records one per line: rank, score, ID and the
// text cut to width.
func Results(results []vector.QueryResult, width int) string {
	if len(results) == 0 {
		return StepStyle.Render("no matching records") + "\n"
	}
	if width <= 0 {
		width = 100
	}

	var sb strings.Builder
	for i, r := range results {
		head := fmt.Sprintf("%2d. %.3f %s", i+1, r.Score, r.ID)
		sb.WriteString(StepStyle.Render(head))
		sb.WriteString("\n    ")
		sb.WriteString(ansi.Truncate(r.Text(), width, "…"))
		sb.WriteString("\n")
	}
	return sb.String()
}
