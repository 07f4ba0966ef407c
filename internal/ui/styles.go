package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary   = lipgloss.Color("39")
	ColorSecondary = lipgloss.Color("241")
	ColorSuccess   = lipgloss.Color("42")
	ColorWarning   = lipgloss.Color("214")
	ColorError     = lipgloss.Color("196")
)

// Styles groups the terminal styles used by the console.
type Styles struct {
	Prompt    lipgloss.Style
	Tool      lipgloss.Style
	Dim       lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Added     lipgloss.Style
	Removed   lipgloss.Style
	Hunk      lipgloss.Style
	Box       lipgloss.Style
	Reasoning lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Prompt:    lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true),
		Tool:      lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true),
		Dim:       lipgloss.NewStyle().Foreground(ColorSecondary),
		Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
		Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
		Error:     lipgloss.NewStyle().Foreground(ColorError),
		Added:     lipgloss.NewStyle().Foreground(ColorSuccess),
		Removed:   lipgloss.NewStyle().Foreground(ColorError),
		Hunk:      lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		Box:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorWarning).Padding(0, 1),
		Reasoning: lipgloss.NewStyle().Foreground(ColorSecondary).Italic(true),
	}
}

// PlainStyles renders text unchanged, for pipes and tests.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Prompt:    plain,
		Tool:      plain,
		Dim:       plain,
		Success:   plain,
		Warning:   plain,
		Error:     plain,
		Added:     plain,
		Removed:   plain,
		Hunk:      plain,
		Box:       plain,
		Reasoning: plain,
	}
}
