package tui

import "github.com/opencode-ai/animseq/internal/models"

var keyCommands = map[string]models.Command{
	"w":     models.CommandForward,
	"up":    models.CommandForward,
	"s":     models.CommandBackward,
	"down":  models.CommandBackward,
	"a":     models.CommandLeft,
	"d":     models.CommandRight,
	"left":  models.CommandRotateCounterClockwise,
	"right": models.CommandRotateClockwise,
	"t":     models.CommandToggleActive,
	"p":     models.CommandPunch,
	" ":     models.CommandPunch,
	"space": models.CommandPunch,
}

// CommandForKey maps a key name to the command it issues.
func CommandForKey(key string) (models.Command, bool) {
	command, ok := keyCommands[key]
	return command, ok
}

const helpLine = "w/↑ forward | s/↓ back | a/d strafe | ←/→ turn | t toggle | p/space punch | q quit"
