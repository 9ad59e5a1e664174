package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/animseq/internal/animd"
	"github.com/opencode-ai/animseq/internal/models"
)

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(pingCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <command>...",
	Short: "Send commands to the daemon",
	Long: `Ask the running daemon to enqueue each command. A command whose
sequence does not fit under the in-flight cap is reported as dropped.`,
	Example: `  animseq send forward
  animseq send punch punch --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		client, err := dialDaemon(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		responses := make([]*animd.EnqueueResponse, 0, len(args))
		for _, arg := range args {
			ctx, cancel := rpcContext(cmd.Context())
			resp, err := client.Enqueue(ctx, models.Command(arg))
			cancel()
			if err != nil {
				return describeRPCError(err, cfg)
			}
			responses = append(responses, resp)
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, responses)
		}

		rows := make([][]string, 0, len(responses))
		for _, resp := range responses {
			rows = append(rows, []string{
				resp.Command,
				formatAccepted(resp.Accepted),
				fmt.Sprintf("%d", resp.ActiveCount),
				fmt.Sprintf("%d", resp.QueueLength),
			})
		}
		return writeTable(out, []string{"COMMAND", "RESULT", "ACTIVE", "QUEUED"}, rows)
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the daemon's sprite and sequencer state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		client, err := dialDaemon(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := rpcContext(cmd.Context())
		defer cancel()
		resp, err := client.GetState(ctx)
		if err != nil {
			return describeRPCError(err, cfg)
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, resp)
		}

		seq := resp.Sequencer
		pending := strings.Join(seq.Pending, " ")
		if pending == "" {
			pending = "-"
		}
		extra := [][2]string{
			{"Sequencer", formatSequencerState(seq.State, seq.Failed)},
			{"Running", formatYesNo(seq.Running)},
			{"Active", fmt.Sprintf("%d/%d sequences", seq.ActiveCount, seq.MaxSequences)},
			{"Pending", pending},
			{"Applied", fmt.Sprintf("%d", seq.Applied)},
			{"Completed", fmt.Sprintf("%d", seq.Completed)},
			{"Dropped", fmt.Sprintf("%d", seq.Dropped)},
			{"Uptime", resp.Uptime},
		}
		if seq.Error != "" {
			extra = append(extra, [2]string{"Error", colorize(seq.Error, colorRed)})
		}
		return writeSpriteState(out, resp.Sprite, extra)
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the daemon is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		client, err := dialDaemon(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := rpcContext(cmd.Context())
		defer cancel()
		started := time.Now()
		serverVersion, serverTime, err := client.Ping(ctx)
		if err != nil {
			return describeRPCError(err, cfg)
		}
		rtt := time.Since(started)

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, map[string]any{
				"address":     resolveDaemonAddr(cfg),
				"version":     serverVersion,
				"server_time": serverTime,
				"rtt":         rtt.String(),
			})
		}
		_, err = fmt.Fprintf(out, "%s animd %s at %s (%s)\n",
			colorize("OK", colorGreen), serverVersion, resolveDaemonAddr(cfg), formatDuration(rtt))
		return err
	},
}
