// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(8))

	lyricStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(11)).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(9))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.ANSIColor(8))
)

// Bar colours, built once: green, yellow, red by height.
var (
	barLowStyle  = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(10))
	barMidStyle  = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(11))
	barHighStyle = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(9))
)

func barStyle(level float64) lipgloss.Style {
	switch {
	case level > 0.75:
		return barHighStyle
	case level > 0.45:
		return barMidStyle
	default:
		return barLowStyle
	}
}
