package tui

import "github.com/charmbracelet/lipgloss"

// Color Palette
var (
	ColorIce   = lipgloss.Color("#A8D8EA") // Cyan/Blueish for accents
	ColorDeep  = lipgloss.Color("#596E79") // Muted Blue/Grey for secondary text
	ColorText  = lipgloss.Color("#E0E0E0") // Primary text
	ColorAlert = lipgloss.Color("#FF6B6B") // Red for errors
	ColorGood  = lipgloss.Color("#4ECDC4") // Green for success
	ColorWarn  = lipgloss.Color("#FFE66D") // Yellow for pending work
	ColorMuted = lipgloss.Color("#6c757d") // Muted text
)

// Styles
var (
	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorIce).
			Bold(true)

	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorDeep).
			Italic(true)

	StyleStatusGood = lipgloss.NewStyle().Foreground(ColorGood).Bold(true)
	StyleStatusBad  = lipgloss.NewStyle().Foreground(ColorAlert).Bold(true)
	StyleStatusWarn = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)

	StyleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDeep).
			Padding(0, 1)

	StyleActiveCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorIce).
			Padding(0, 1)

	StyleModal = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorWarn).
			Padding(1, 2)

	StyleInputPrompt = lipgloss.NewStyle().Foreground(ColorIce)
	StyleMenuKey     = lipgloss.NewStyle().Foreground(ColorMuted).Faint(true)

	StyleApp = lipgloss.NewStyle().Margin(1, 2)
)
