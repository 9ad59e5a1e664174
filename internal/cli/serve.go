package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/animseq/internal/animd"
	"github.com/opencode-ai/animseq/internal/logging"
)

var (
	serveHost     string
	servePort     int
	serveNoRecord bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "address to bind (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (default from config)")
	serveCmd.Flags().BoolVar(&serveNoRecord, "no-record", false, "do not write events to the database")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sequencer daemon",
	Long: `Run a live sequencer behind a gRPC endpoint. Use 'animseq send',
'animseq state' and 'animseq events --follow' to talk to it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *GetConfig()
		if serveHost != "" {
			cfg.Daemon.Host = serveHost
		}
		if servePort != 0 {
			cfg.Daemon.Port = servePort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		step := startProgress("Loading catalog")
		rt, err := buildStack(&cfg, stackOptions{persist: !serveNoRecord})
		if err != nil {
			step.Fail(err)
			return err
		}
		step.Done()
		defer rt.Close()

		logger := logging.Component("animd")
		server := animd.NewServer(logger, rt.sequencer, rt.sprite,
			animd.WithVersion(version),
			animd.WithCommands(rt.catalog),
			animd.WithRecorder(rt.recorder),
		)
		daemon, err := animd.NewDaemon(&cfg, server, logger)
		if err != nil {
			return err
		}

		if err := rt.start(ctx); err != nil {
			return err
		}
		defer rt.stop()

		fmt.Fprintf(progressOut, "Serving sprite %s on %s\n", rt.sprite.ID(), cfg.DaemonAddress())
		return rt.serveUntilHalted(ctx, daemon.Run)
	},
}
