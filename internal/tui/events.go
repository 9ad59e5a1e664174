package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/opencode-ai/animseq/internal/models"
)

// EventMsg carries a recorded event into the program.
type EventMsg struct {
	Event *models.Event
}

// SubscriptionClosedMsg reports that the event subscription ended.
type SubscriptionClosedMsg struct{}

// waitForEvent returns a command that delivers the next event from ch.
// The model re-issues it after every EventMsg.
func waitForEvent(ch <-chan *models.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return SubscriptionClosedMsg{}
		}
		return EventMsg{Event: event}
	}
}
