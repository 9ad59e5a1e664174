package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	colorRed     = "1"
	colorGreen   = "2"
	colorYellow  = "3"
	colorMagenta = "5"
	colorCyan    = "6"
)

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool {
	return jsonOutput
}

// IsJSONLOutput reports whether --jsonl was given.
func IsJSONLOutput() bool {
	return jsonlOutput
}

// WriteOutput writes v as indented JSON, or one JSON object per line when
// --jsonl is set and v is a slice.
func WriteOutput(out io.Writer, v any) error {
	if IsJSONLOutput() {
		return writeJSONL(out, v)
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeJSONL(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	value := reflect.ValueOf(v)
	if value.Kind() != reflect.Slice {
		return encoder.Encode(v)
	}
	for i := 0; i < value.Len(); i++ {
		if err := encoder.Encode(value.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

func colorEnabled() bool {
	if noColor || IsJSONOutput() || IsJSONLOutput() {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func colorize(text, color string) string {
	if !colorEnabled() || color == "" {
		return text
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(text)
}

// PreflightError reports a condition the user has to fix before retrying.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg = fmt.Sprintf("%s\nhint: %s", msg, e.Hint)
	}
	if e.NextStep != "" {
		msg = fmt.Sprintf("%s\nnext: %s", msg, e.NextStep)
	}
	return msg
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// IsNonInteractive reports whether prompts and the TUI must be avoided.
func IsNonInteractive() bool {
	if nonInteractive {
		return true
	}
	if _, ok := os.LookupEnv("ANIMSEQ_NON_INTERACTIVE"); ok {
		return true
	}
	return !hasTTY()
}
