// Package ui renders engine notifications as human-readable terminal
// lines. Styling degrades to plain text when stdout is not a terminal.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/Gavin1937/aggregate-linker/pkg/types"
)

// Adaptive colors keep the tags legible on light and dark themes.
var (
	createdStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "82"})
	removedStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "130", Dark: "214"})
	warnStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "203"})
	healStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "26", Dark: "75"})
	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "246"})
)

// Terminal writes styled action lines. It implements types.Reporter.
type Terminal struct {
	out   io.Writer
	plain bool
}

var _ types.Reporter = (*Terminal)(nil)

// NewTerminal creates a reporter writing to stdout, with styling when
// stdout is a terminal.
func NewTerminal() *Terminal {
	return &Terminal{
		out:   os.Stdout,
		plain: !isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// NewWriter creates a reporter writing plain text to w (for tests and
// redirected output).
func NewWriter(w io.Writer) *Terminal {
	return &Terminal{out: w, plain: true}
}

func (t *Terminal) render(s lipgloss.Style, text string) string {
	if t.plain {
		return text
	}
	return s.Render(text)
}

func (t *Terminal) LinkCreated(name, target string) {
	fmt.Fprintf(t.out, "%s %s -> %s\n",
		t.render(createdStyle, "[LINK CREATED]"), name, t.render(pathStyle, target))
}

func (t *Terminal) LinkRemoved(name string) {
	fmt.Fprintf(t.out, "%s %s\n", t.render(removedStyle, "[LINK REMOVED]"), name)
}

func (t *Terminal) ConflictSkipped(name string) {
	fmt.Fprintf(t.out, "%s %s already exists in root and is not a link, skipping\n",
		t.render(warnStyle, "[CONFLICT]"), name)
}

func (t *Terminal) HealStarted(sourceDir string) {
	fmt.Fprintf(t.out, "%s %s recreated, waiting for it to settle\n",
		t.render(healStyle, "[HEAL]"), t.render(pathStyle, sourceDir))
}

func (t *Terminal) HealCompleted(sourceDir string, created int) {
	fmt.Fprintf(t.out, "%s %s rescanned, %d link(s) created\n",
		t.render(healStyle, "[HEAL]"), t.render(pathStyle, sourceDir), created)
}

func (t *Terminal) SpecDisabled(pattern, reason string) {
	fmt.Fprintf(t.out, "%s source %s disabled: %s\n",
		t.render(warnStyle, "[CONFIG]"), pattern, reason)
}
