// Package tui provides Bubble Tea views for the tfc CLI.
//
// TUI is opt-in (--tui). Transfers get a live progress bar; the journal
// command gets summary and record views built from the same payloads the
// plain renderer prints.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Adaptive colours keep labels readable on light terminals.
var (
	primaryColor   = lipgloss.Color("#0EA5E9") // sky
	successColor   = lipgloss.Color("#22C55E")
	warningColor   = lipgloss.Color("#EAB308")
	errorColor     = lipgloss.Color("#DC2626")
	highlightColor = lipgloss.Color("#6366F1") // indigo
	mutedColor     = lipgloss.AdaptiveColor{Light: "#57534E", Dark: "#A8A29E"}
	textColor      = lipgloss.AdaptiveColor{Light: "#1C1917", Dark: "#FAFAF9"}
)

// Text styles.
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).MarginBottom(1)
	LabelStyle   = lipgloss.NewStyle().Foreground(mutedColor).Width(16)
	ValueStyle   = lipgloss.NewStyle().Foreground(textColor)
	HelpStyle    = lipgloss.NewStyle().Foreground(mutedColor).Italic(true).MarginTop(1)
	SuccessStyle = lipgloss.NewStyle().Foreground(successColor)
	WarningStyle = lipgloss.NewStyle().Foreground(warningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
)

// Layout styles.
var (
	// BoxStyle frames a result or record.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// BarStyle pads the progress bar.
	BarStyle = lipgloss.NewStyle().Padding(0, 1)

	// StatBoxStyle is one counter tile; callers recolour the border.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			Width(16).
			Align(lipgloss.Center)

	StatLabelStyle = lipgloss.NewStyle().Foreground(mutedColor)
	StatValueStyle = lipgloss.NewStyle().Bold(true)
)

// StateStyle colours an operation outcome.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "completed", "already complete":
		return SuccessStyle
	case "resumed":
		return WarningStyle
	case "failed":
		return ErrorStyle
	default:
		return ValueStyle
	}
}
