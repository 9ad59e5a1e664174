package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/animseq/internal/tui"
)

var driveNoRecord bool

func init() {
	rootCmd.AddCommand(driveCmd)
	driveCmd.Flags().BoolVar(&driveNoRecord, "no-record", false, "do not write events to the database")
}

var driveCmd = &cobra.Command{
	Use:     "drive",
	Aliases: []string{"ui"},
	Short:   "Drive a sprite from the keyboard",
	Long: `Launch the terminal driver: a top-down floor view of the sprite,
its sequencer state and recent events. Keys enqueue commands exactly
like 'animseq send' does against a daemon.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if IsNonInteractive() {
			return &PreflightError{
				Message:  "drive requires an interactive terminal",
				Hint:     "run with a TTY, or use 'animseq run' for headless playback",
				NextStep: "animseq run forward",
			}
		}

		cfg := GetConfig()
		rt, err := buildStack(cfg, stackOptions{persist: !driveNoRecord})
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := rt.start(ctx); err != nil {
			return err
		}
		defer rt.stop()

		return tui.Run(ctx, tui.Options{
			Sequencer: rt.sequencer,
			Sprite:    rt.sprite,
			Recorder:  rt.recorder,
			Theme:     cfg.TUI.Theme,
		})
	},
}
