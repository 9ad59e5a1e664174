package styles

import "github.com/charmbracelet/lipgloss"

// Styles contains lipgloss styles derived from theme tokens.
type Styles struct {
	Theme          Theme
	Title          lipgloss.Style
	Text           lipgloss.Style
	Muted          lipgloss.Style
	Accent         lipgloss.Style
	Panel          lipgloss.Style
	Border         lipgloss.Style
	Focus          lipgloss.Style
	Success        lipgloss.Style
	Warning        lipgloss.Style
	Error          lipgloss.Style
	Info           lipgloss.Style
	Floor          lipgloss.Style
	Sprite         lipgloss.Style
	StatusIdle     lipgloss.Style
	StatusRunning  lipgloss.Style
	StatusFailed   lipgloss.Style
	StatusInactive lipgloss.Style
}

// DefaultStyles builds styles from the default theme.
func DefaultStyles() Styles {
	return BuildStyles(DefaultTheme)
}

// StylesFor builds styles for a named theme, falling back to the default.
func StylesFor(name string) Styles {
	theme, _ := ThemeByName(name)
	return BuildStyles(theme)
}

// BuildStyles converts theme tokens into lipgloss styles.
func BuildStyles(theme Theme) Styles {
	tokens := theme.Tokens
	fg := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	}

	return Styles{
		Theme:  theme,
		Title:  fg(tokens.Text).Bold(true),
		Text:   fg(tokens.Text),
		Muted:  fg(tokens.TextMuted),
		Accent: fg(tokens.Accent),
		Panel: fg(tokens.Text).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(tokens.Border)),
		Border:         fg(tokens.Border),
		Focus:          fg(tokens.Focus).Bold(true),
		Success:        fg(tokens.Success),
		Warning:        fg(tokens.Warning),
		Error:          fg(tokens.Error),
		Info:           fg(tokens.Info),
		Floor:          fg(tokens.Floor),
		Sprite:         fg(tokens.Sprite).Bold(true),
		StatusIdle:     fg(tokens.TextMuted),
		StatusRunning:  fg(tokens.Success),
		StatusFailed:   fg(tokens.Error).Bold(true),
		StatusInactive: fg(tokens.Warning),
	}
}
