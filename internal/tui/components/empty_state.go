package components

import (
	"fmt"
	"strings"

	"github.com/opencode-ai/animseq/internal/tui/styles"
)

// EmptyState is shown in place of a panel that has nothing to display.
type EmptyState struct {
	Title    string
	Subtitle string
	// Hints are keys the user can press.
	Hints []KeyHint
}

// KeyHint pairs a key with what it does.
type KeyHint struct {
	Key         string
	Description string
}

// Render renders the empty state with the given styles.
func (e EmptyState) Render(styleSet styles.Styles) string {
	lines := []string{styleSet.Muted.Render(e.Title)}

	if e.Subtitle != "" {
		lines = append(lines, styleSet.Muted.Render(e.Subtitle))
	}

	if len(e.Hints) > 0 {
		lines = append(lines, "", styleSet.Text.Render("Try:"))
		for _, h := range e.Hints {
			line := fmt.Sprintf("  %s", styleSet.Accent.Render(h.Key))
			if h.Description != "" {
				line += styleSet.Muted.Render("  " + h.Description)
			}
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

// RenderCompact renders the empty state on one line.
func (e EmptyState) RenderCompact(styleSet styles.Styles) string {
	line := e.Title
	if len(e.Hints) > 0 {
		line += fmt.Sprintf(" Try: %s", e.Hints[0].Key)
	}
	return styleSet.Muted.Render(line)
}

// EmptyActivity is shown before any command has been issued.
func EmptyActivity() EmptyState {
	return EmptyState{
		Title:    "No activity yet",
		Subtitle: "Commands queue up to four sequences; extra presses are dropped.",
		Hints: []KeyHint{
			{Key: "w", Description: "walk forward"},
			{Key: "p", Description: "punch"},
			{Key: "t", Description: "show or hide the sprite"},
		},
	}
}

// EmptyQueue is shown when no steps are scheduled.
func EmptyQueue() EmptyState {
	return EmptyState{Title: "Schedule is empty"}
}
