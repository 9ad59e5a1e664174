// Package styles holds the colour themes of the animseq terminal views.
package styles

import "strings"

// ThemeTokens defines the semantic color roles for the TUI.
type ThemeTokens struct {
	Background string
	Panel      string
	Text       string
	TextMuted  string
	Border     string
	Accent     string
	Focus      string
	Success    string
	Warning    string
	Error      string
	Info       string

	// Floor and Sprite colour the top-down floor view.
	Floor  string
	Sprite string
}

// Theme bundles a palette with a name.
type Theme struct {
	Name   string
	Tokens ThemeTokens
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default":       DefaultTheme,
	"high-contrast": HighContrastTheme,
}

// ThemeByName looks a theme up case-insensitively, falling back to the default.
func ThemeByName(name string) (Theme, bool) {
	theme, ok := Themes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return DefaultTheme, false
	}
	return theme, true
}
