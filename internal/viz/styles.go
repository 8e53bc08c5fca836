package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("242"))

	StatusRunning = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82"))

	StatusFailed = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	StatusAborted = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	Value = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("213"))

	Label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	KeyHint = lipgloss.NewStyle().
		Foreground(lipgloss.Color("238")).
		Italic(true)

	Marker = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("203"))
)

// ProgressBar renders a fixed-width bar for a fraction in [0, 1].
func ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if fraction >= 1 {
		return StatusRunning.Render(bar)
	}
	return Value.Render(bar)
}

// Spinner returns one frame of a braille spinner.
func Spinner(frame int) string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return frames[frame%len(frames)]
}
