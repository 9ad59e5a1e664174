package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/animseq/internal/db"
	"github.com/opencode-ai/animseq/internal/models"
)

var (
	eventsLimit  int
	eventsType   string
	eventsSince  time.Duration
	eventsCursor string
	eventsFollow bool

	eventsPruneOlderThan time.Duration
)

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsPruneCmd)

	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 50, "maximum number of events to show")
	eventsCmd.Flags().StringVarP(&eventsType, "type", "t", "", "only show events of this type (e.g. sequence.dropped)")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 0, "only show events newer than this (e.g. 10m)")
	eventsCmd.Flags().StringVar(&eventsCursor, "cursor", "", "continue after this event ID")
	eventsCmd.Flags().BoolVarP(&eventsFollow, "follow", "f", false, "stream live events from the daemon")

	eventsPruneCmd.Flags().DurationVar(&eventsPruneOlderThan, "older-than", 24*time.Hour, "delete events older than this")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Query the event log",
	Long: `Show recorded sequencer events, oldest first. With --follow, stream
events from the running daemon instead of reading the database.`,
	Example: `  animseq events --type sequence.dropped
  animseq events --since 5m --jsonl
  animseq events --follow`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var eventType *models.EventType
		if eventsType != "" {
			t := models.EventType(eventsType)
			if !isKnownEventType(t) {
				return fmt.Errorf("unknown event type %q (valid: %s)", eventsType, strings.Join(eventTypeNames(), ", "))
			}
			eventType = &t
		}

		if eventsFollow {
			return followEvents(cmd, eventType)
		}

		database, err := openDatabase(GetConfig())
		if err != nil {
			return err
		}
		defer database.Close()

		query := db.EventQuery{
			Type:   eventType,
			Cursor: eventsCursor,
			Limit:  eventsLimit,
		}
		if eventsSince > 0 {
			since := time.Now().Add(-eventsSince)
			query.Since = &since
		}

		page, err := db.NewEventRepository(database).Query(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() {
			return WriteOutput(out, page)
		}
		if IsJSONLOutput() {
			return WriteOutput(out, page.Events)
		}
		if err := writeEventTable(out, page.Events); err != nil {
			return err
		}
		if page.NextCursor != "" {
			fmt.Fprintf(out, "\nMore events: animseq events --cursor %s\n", page.NextCursor)
		}
		return nil
	},
}

var eventsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventsPruneOlderThan <= 0 {
			return errors.New("--older-than must be positive")
		}

		database, err := openDatabase(GetConfig())
		if err != nil {
			return err
		}
		defer database.Close()

		cutoff := time.Now().Add(-eventsPruneOlderThan)
		deleted, err := db.NewEventRepository(database).DeleteOlderThan(cmd.Context(), cutoff)
		if err != nil {
			return fmt.Errorf("failed to prune events: %w", err)
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, map[string]any{"deleted": deleted, "cutoff": cutoff.UTC()})
		}
		_, err = fmt.Fprintf(out, "Deleted %d events older than %s\n", deleted, eventsPruneOlderThan)
		return err
	},
}

func followEvents(cmd *cobra.Command, eventType *models.EventType) error {
	cfg := GetConfig()
	client, err := dialDaemon(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	err = client.StreamEvents(ctx, func(event *models.Event) error {
		if eventType != nil && event.Type != *eventType {
			return nil
		}
		if IsJSONOutput() || IsJSONLOutput() {
			return writeJSONL(out, event)
		}
		return writeEventLine(out, event)
	})
	if err != nil && ctx.Err() == nil {
		return describeRPCError(err, cfg)
	}
	return nil
}

func writeEventTable(out io.Writer, events []*models.Event) error {
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, []string{
			event.Timestamp.Local().Format("15:04:05.000"),
			string(event.Type),
			event.EntityID,
			summarizePayload(event),
		})
	}
	return writeTable(out, []string{"TIME", "TYPE", "ENTITY", "DETAILS"}, rows)
}

func writeEventLine(out io.Writer, event *models.Event) error {
	_, err := fmt.Fprintf(out, "%s  %-20s %s\n",
		event.Timestamp.Local().Format("15:04:05.000"), event.Type, summarizePayload(event))
	return err
}

func summarizePayload(event *models.Event) string {
	if len(event.Payload) == 0 {
		return ""
	}
	return strings.TrimSpace(string(event.Payload))
}

func isKnownEventType(t models.EventType) bool {
	for _, known := range models.EventTypes() {
		if known == t {
			return true
		}
	}
	return false
}

func eventTypeNames() []string {
	types := models.EventTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return names
}
