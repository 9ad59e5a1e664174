package cli

import (
	"fmt"
	"strings"

	"github.com/opencode-ai/animseq/internal/sequencer"
)

func formatSequencerState(state string, failed bool) string {
	label, color := statusLabelForSequencer(state, failed)
	return colorize(formatStatusLabel(label, state), color)
}

func formatAccepted(accepted bool) string {
	if accepted {
		return colorize("accepted", colorGreen)
	}
	return colorize("dropped (schedule full)", colorYellow)
}

func formatActive(active bool) string {
	if active {
		return colorize("visible", colorCyan)
	}
	return colorize("hidden", colorMagenta)
}

func statusLabelForSequencer(state string, failed bool) (string, string) {
	if failed {
		return "ERR", colorRed
	}
	switch state {
	case sequencer.StateIdle.String():
		return "OK", colorGreen
	case sequencer.StateRunning.String():
		return "BUSY", colorCyan
	default:
		return "WARN", colorYellow
	}
}

func formatStatusLabel(label, status string) string {
	normalized := strings.TrimSpace(status)
	if normalized != "" {
		normalized = strings.ReplaceAll(normalized, "_", " ")
	}
	if normalized == "" {
		return label
	}
	return fmt.Sprintf("%s %s", label, normalized)
}
