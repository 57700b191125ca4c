package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the colour palette for the TUI.
type Theme struct {
	Primary    lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() Theme {
	return Theme{
		Primary:    lipgloss.Color("#D97706"), // Amber
		Foreground: lipgloss.Color("#E5E7EB"), // Light gray
		Muted:      lipgloss.Color("#6B7280"), // Medium gray
		Error:      lipgloss.Color("#F87171"), // Red
		Border:     lipgloss.Color("#4B5563"), // Border gray
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	Title    lipgloss.Style
	Prompt   lipgloss.Style
	Result   lipgloss.Style
	Selected lipgloss.Style
	Score    lipgloss.Style
	Help     lipgloss.Style
	Error    lipgloss.Style
}

// DefaultStyles builds the style set from a theme.
func DefaultStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true).
			Padding(0, 1),
		Prompt: lipgloss.NewStyle().
			Foreground(t.Foreground).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		Result: lipgloss.NewStyle().
			Foreground(t.Foreground).
			PaddingLeft(2),
		Selected: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),
		Score: lipgloss.NewStyle().
			Foreground(t.Muted),
		Help: lipgloss.NewStyle().
			Foreground(t.Muted).
			PaddingTop(1),
		Error: lipgloss.NewStyle().
			Foreground(t.Error),
	}
}
