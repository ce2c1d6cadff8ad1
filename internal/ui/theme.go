package ui

import "github.com/charmbracelet/lipgloss"

// Theme bundles the colors and styles the views render with.
type Theme struct {
	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Selected  lipgloss.Style
	Timer     lipgloss.Style
	Error     lipgloss.Style
	Help      lipgloss.Style
	FieldName lipgloss.Style
	Badge     lipgloss.Style
}

// themeByName resolves a theme name from settings; unknown names fall back
// to dark.
func themeByName(name string) Theme {
	switch name {
	case "light":
		return newTheme(
			lipgloss.Color("#1d2021"),
			lipgloss.Color("#7c6f64"),
			lipgloss.Color("#076678"),
			lipgloss.Color("#9d0006"),
		)
	default:
		return newTheme(
			lipgloss.Color("#ebdbb2"),
			lipgloss.Color("#928374"),
			lipgloss.Color("#83a598"),
			lipgloss.Color("#fb4934"),
		)
	}
}

func newTheme(fg, subtle, accent, alert lipgloss.Color) Theme {
	return Theme{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		Subtle:    lipgloss.NewStyle().Foreground(subtle),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(fg).Background(lipgloss.Color("#3c3836")),
		Timer:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(alert),
		Help:      lipgloss.NewStyle().Foreground(subtle),
		FieldName: lipgloss.NewStyle().Foreground(subtle).Width(12),
		Badge:     lipgloss.NewStyle().Foreground(accent),
	}
}
