package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor  = lipgloss.Color("#7C3AED")
	gainColor     = lipgloss.Color("#10B981")
	lossColor     = lipgloss.Color("#EF4444")
	accentColor   = lipgloss.Color("#F59E0B")
	mutedColor    = lipgloss.Color("#6B7280")
	textColor     = lipgloss.Color("#F9FAFB")
	borderColor   = lipgloss.Color("#374151")
	neonColor     = lipgloss.Color("#22D3EE")
	selectedBgCol = lipgloss.Color("#374151")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Padding(0, 1)

	tabStyle       = lipgloss.NewStyle().Foreground(mutedColor).Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Foreground(textColor).Background(primaryColor).Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(mutedColor)
	selectedStyle = lipgloss.NewStyle().Foreground(textColor).Background(selectedBgCol)
	mutedStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	gainStyle     = lipgloss.NewStyle().Foreground(gainColor)
	lossStyle     = lipgloss.NewStyle().Foreground(lossColor)
	accentStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)

	toastStyle     = lipgloss.NewStyle().Foreground(textColor).Padding(0, 1)
	celebrateStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor).Padding(0, 1)
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lossColor).Padding(0, 1)
)

func chartStyle(cosmetic string) lipgloss.Style {
	if cosmetic == "neon" {
		return lipgloss.NewStyle().Foreground(neonColor).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(gainColor)
}
