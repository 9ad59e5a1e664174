// Package cli implements the animseq command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/animseq/internal/config"
	"github.com/opencode-ai/animseq/internal/logging"
)

var (
	cfgFile        string
	logLevel       string
	logFormat      string
	jsonOutput     bool
	jsonlOutput    bool
	noColor        bool
	noProgress     bool
	nonInteractive bool

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "animseq",
	Short: "Step-based animation sequencer",
	Long: `animseq plays short step sequences (walk, turn, punch) on a sprite,
one step per tick, with at most a fixed number of sequences in flight.

Run sequences headless, drive a sprite from the keyboard, or serve a
sequencer over gRPC and send it commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./animseq.yaml or $XDG_CONFIG_HOME/animseq/animseq.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "log format (console, json)")
	flags.BoolVar(&jsonOutput, "json", false, "output in JSON format")
	flags.BoolVar(&jsonlOutput, "jsonl", false, "output in JSON Lines format")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&noProgress, "no-progress", false, "disable progress output")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt or start the TUI")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion records build information for the version command.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
	rootCmd.Version = v
}

func initConfig() error {
	loader := config.NewLoader()

	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = loader.LoadFromFile(cfgFile)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := logging.Init(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	}); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if used := loader.ConfigFileUsed(); used != "" {
		logger := logging.Component("cli")
		logger.Debug().Str("file", used).Msg("config loaded")
	}

	appConfig = cfg
	return nil
}

// GetConfig returns the loaded configuration, or the defaults before load.
func GetConfig() *config.Config {
	if appConfig == nil {
		return config.DefaultConfig()
	}
	return appConfig
}
