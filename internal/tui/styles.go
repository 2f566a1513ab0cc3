package tui

import "github.com/charmbracelet/lipgloss"

// styles holds the lipgloss styles used by View.
type styles struct {
	title    lipgloss.Style
	tool     lipgloss.Style
	loading  lipgloss.Style
	selected lipgloss.Style
	dim      lipgloss.Style
	err      lipgloss.Style
	detail   lipgloss.Style
	label    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7AA2F7")),
		tool: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0AF68")),
		loading: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#9ECE6A")),
		selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1A1B26")).
			Background(lipgloss.Color("#7AA2F7")),
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565F89")),
		err: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F7768E")),
		detail: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#565F89")).
			Padding(0, 1),
		label: lipgloss.NewStyle().
			Bold(true).
			Width(14),
	}
}
