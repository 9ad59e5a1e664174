package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/animseq/internal/sequences"
)

var commandsRemote bool

func init() {
	rootCmd.AddCommand(commandsCmd)
	commandsCmd.Flags().BoolVar(&commandsRemote, "remote", false, "list the commands of the running daemon")
}

var commandsCmd = &cobra.Command{
	Use:     "commands",
	Aliases: []string{"ls"},
	Short:   "List catalog commands",
	Long: `List every command in the catalog with the step tags it plays.
Project catalogs (.animseq/commands) override user catalogs, which
override the builtin catalog.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		var infos []sequences.CommandInfo
		if commandsRemote {
			client, err := dialDaemon(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := rpcContext(cmd.Context())
			defer cancel()
			resp, err := client.ListCommands(ctx)
			if err != nil {
				return describeRPCError(err, cfg)
			}
			infos = resp.Commands
		} else {
			units := sequences.UnitsFromDegrees(cfg.Motion.MoveRate, cfg.Motion.RotateAngle)
			catalog, err := sequences.LoadCatalog(cfg.Catalog.Dir, projectDir(), units)
			if err != nil {
				return err
			}
			infos = catalog.Commands()
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, infos)
		}

		rows := make([][]string, 0, len(infos))
		for _, info := range infos {
			rows = append(rows, []string{
				string(info.Name),
				strings.Join(info.Tags, " "),
				info.Source,
				info.Description,
			})
		}
		return writeTable(out, []string{"COMMAND", "STEPS", "SOURCE", "DESCRIPTION"}, rows)
	},
}
