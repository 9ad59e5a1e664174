package cli

import (
	"fmt"
	"io"
	"os"
	"time"
)

var progressOut io.Writer = os.Stderr

type progressStep struct {
	label   string
	started time.Time
}

// startProgress prints label and returns a step to close with Done or
// Fail. It returns nil, which is safe to use, when progress is disabled.
func startProgress(label string) *progressStep {
	if !progressEnabled() {
		return nil
	}
	fmt.Fprintf(progressOut, "%s... ", label)
	return &progressStep{label: label, started: time.Now()}
}

func (p *progressStep) Done() {
	if p == nil {
		return
	}
	fmt.Fprintf(progressOut, "done (%s)\n", formatDuration(time.Since(p.started)))
}

func (p *progressStep) Fail(err error) {
	if p == nil {
		return
	}
	if err != nil {
		fmt.Fprintf(progressOut, "failed: %v\n", err)
		return
	}
	fmt.Fprintln(progressOut, "failed")
}

func progressEnabled() bool {
	if IsJSONOutput() || IsJSONLOutput() || noProgress {
		return false
	}
	if _, ok := os.LookupEnv("ANIMSEQ_NO_PROGRESS"); ok {
		return false
	}
	if _, ok := os.LookupEnv("NO_PROGRESS"); ok {
		return false
	}
	return true
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	if d < time.Second {
		return d.Round(10 * time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
