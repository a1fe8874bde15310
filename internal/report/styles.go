// Package report renders generation progress, result listings and run
// reports for the terminal.
package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Theme defines the colors used in terminal output
type Theme struct {
	Primary lipgloss.AdaptiveColor
	Success lipgloss.AdaptiveColor
	Failure lipgloss.AdaptiveColor
	Dim     lipgloss.AdaptiveColor
}

// DefaultTheme works on light and dark terminals
var DefaultTheme = Theme{
	Primary: lipgloss.AdaptiveColor{Light: "25", Dark: "33"},
	Success: lipgloss.AdaptiveColor{Light: "28", Dark: "46"},
	Failure: lipgloss.AdaptiveColor{Light: "124", Dark: "196"},
	Dim:     lipgloss.AdaptiveColor{Light: "243", Dark: "245"},
}

// Styles holds the styles derived from a theme
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Dim     lipgloss.Style
	Bar     lipgloss.Style
}

// NewStyles creates styles from a theme
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:   lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Failure: lipgloss.NewStyle().Foreground(t.Failure).Bold(true),
		Dim:     lipgloss.NewStyle().Foreground(t.Dim),
		Bar:     lipgloss.NewStyle().Foreground(t.Primary),
	}
}

var isTerminal = func(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writerIsTerminal checks if a writer is backed by a terminal
func writerIsTerminal(w io.Writer) bool {
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		return isTerminal(f.Fd())
	}
	return false
}
