package styles

// DefaultTheme is the dark palette used unless tui.theme says otherwise.
var DefaultTheme = Theme{
	Name: "default",
	Tokens: ThemeTokens{
		Background: "#0B0F14",
		Panel:      "#121821",
		Text:       "#E6EDF3",
		TextMuted:  "#8B9AAE",
		Border:     "#223043",
		Accent:     "#5B8DEF",
		Focus:      "#7AA2F7",
		Success:    "#3FB950",
		Warning:    "#D29922",
		Error:      "#F85149",
		Info:       "#58A6FF",
		Floor:      "#1B2633",
		Sprite:     "#F0B429",
	},
}
