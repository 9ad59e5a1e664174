package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/animseq/internal/config"
	"github.com/opencode-ai/animseq/internal/models"
	"github.com/opencode-ai/animseq/internal/sequences"
)

var (
	runTimeout  time.Duration
	runNoRecord bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Second, "give up if the schedule has not drained by then")
	runCmd.Flags().BoolVar(&runNoRecord, "no-record", false, "do not write events to the database")
}

var runCmd = &cobra.Command{
	Use:   "run <command>...",
	Short: "Play commands headless",
	Long: `Enqueue each command in order, tick until the schedule is empty and
print the final sprite state. Commands beyond the in-flight cap are dropped
and reported, exactly as a live sequencer would.`,
	Example: `  animseq run forward forward rotate-clockwise
  animseq run punch --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := runCommands(ctx, GetConfig(), args, runOptions{
			timeout: runTimeout,
			persist: !runNoRecord,
		})
		if result != nil {
			if writeErr := writeRunResult(cmd.OutOrStdout(), result); writeErr != nil {
				return writeErr
			}
		}
		return err
	},
}

type runOptions struct {
	timeout time.Duration
	persist bool
}

// RunResult is the outcome of `animseq run`.
type RunResult struct {
	Commands  []CommandOutcome   `json:"commands"`
	Sprite    models.SpriteState `json:"sprite"`
	Applied   int64              `json:"applied"`
	Completed int64              `json:"completed"`
	Dropped   int64              `json:"dropped"`
	Duration  string             `json:"duration"`
	Error     string             `json:"error,omitempty"`
}

// CommandOutcome reports whether one command's sequence was accepted.
type CommandOutcome struct {
	Command  models.Command `json:"command"`
	Accepted bool           `json:"accepted"`
}

func runCommands(ctx context.Context, cfg *config.Config, args []string, opts runOptions) (*RunResult, error) {
	rt, err := buildStack(cfg, stackOptions{persist: opts.persist})
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	commands := make([]models.Command, 0, len(args))
	for _, arg := range args {
		command := models.Command(arg)
		if !rt.catalog.Load().Has(command) {
			return nil, fmt.Errorf("%w: %s (see `animseq commands`)", sequences.ErrUnknownCommand, arg)
		}
		commands = append(commands, command)
	}

	result := &RunResult{Commands: make([]CommandOutcome, 0, len(commands))}
	for _, command := range commands {
		accepted, err := rt.sequencer.EnqueueCommand(command)
		if err != nil {
			return nil, err
		}
		result.Commands = append(result.Commands, CommandOutcome{Command: command, Accepted: accepted})
	}

	started := time.Now()
	if err := rt.start(ctx); err != nil {
		return nil, err
	}

	waitCtx := ctx
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}
	waitErr := rt.sequencer.WaitIdle(waitCtx)
	rt.stop()

	stats := rt.sequencer.Stats()
	result.Sprite = rt.sprite.Snapshot()
	result.Applied = stats.Applied
	result.Completed = stats.Completed
	result.Dropped = stats.Dropped
	result.Duration = formatDuration(time.Since(started))

	switch {
	case waitErr == nil:
	case errors.Is(waitErr, context.DeadlineExceeded):
		return nil, fmt.Errorf("schedule did not drain within %s (%d steps left)", opts.timeout, stats.QueueLength)
	case errors.Is(waitErr, context.Canceled):
		return nil, waitErr
	default:
		result.Error = waitErr.Error()
		return result, fmt.Errorf("sequencer halted: %w", waitErr)
	}
	return result, nil
}

func writeRunResult(out io.Writer, result *RunResult) error {
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(out, result)
	}

	rows := make([][]string, 0, len(result.Commands))
	for _, outcome := range result.Commands {
		rows = append(rows, []string{string(outcome.Command), formatAccepted(outcome.Accepted)})
	}
	if err := writeTable(out, []string{"COMMAND", "RESULT"}, rows); err != nil {
		return err
	}
	fmt.Fprintln(out)

	return writeSpriteState(out, result.Sprite, [][2]string{
		{"Steps applied", fmt.Sprintf("%d", result.Applied)},
		{"Sequences completed", fmt.Sprintf("%d", result.Completed)},
		{"Sequences dropped", fmt.Sprintf("%d", result.Dropped)},
		{"Duration", result.Duration},
	})
}

func writeSpriteState(out io.Writer, state models.SpriteState, extra [][2]string) error {
	fields := [][2]string{
		{"Sprite", state.ID},
		{"Position", state.Position.String()},
		{"Rotation", state.Rotation.String()},
		{"Pose", state.Pose},
		{"Active", formatActive(state.Active)},
	}
	return writeFields(out, append(fields, extra...))
}
