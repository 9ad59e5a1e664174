// Package components provides the panels of the animseq TUI.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/opencode-ai/animseq/internal/sequencer"
	"github.com/opencode-ai/animseq/internal/tui/styles"
)

// RenderSequencerBadge renders the sequencer state with icon and color.
func RenderSequencerBadge(styleSet styles.Styles, state sequencer.State, failed bool) string {
	icon, label, style := stateDescriptor(styleSet, state, failed)
	return style.Render(fmt.Sprintf("%s %s", icon, label))
}

// RenderActiveBadge renders whether the sprite is shown.
func RenderActiveBadge(styleSet styles.Styles, active bool) string {
	if active {
		return styleSet.Success.Render("ON  Visible")
	}
	return styleSet.StatusInactive.Render("OFF Hidden")
}

func stateDescriptor(styleSet styles.Styles, state sequencer.State, failed bool) (string, string, lipgloss.Style) {
	if failed {
		return "ERR", "Halted", styleSet.StatusFailed
	}
	switch state {
	case sequencer.StateRunning:
		return ">", "Animating", styleSet.StatusRunning
	default:
		return "OK", "Idle", styleSet.StatusIdle
	}
}
