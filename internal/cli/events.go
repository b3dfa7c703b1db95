package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/grovekit/grove/internal/observability"
)

var (
	eventsType  string
	eventsLevel string
	eventsSince time.Duration
	eventsLast  int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent orchestration events",
	Long: `Read the event log: checkout lifecycle, queue transitions, sync cycles,
and intake activity.

--type matches a full event type or a dotted prefix ("sync" shows every
sync.* event). --since takes a duration like 30m or 2h.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if EventLog == nil {
			return fmt.Errorf("event log not initialized")
		}

		filter := observability.EventFilter{
			Type:  eventsType,
			Level: eventsLevel,
			Last:  eventsLast,
		}
		if eventsSince > 0 {
			filter.Since = time.Now().UTC().Add(-eventsSince)
		}

		events, err := EventLog.Read(filter)
		if err != nil {
			return fmt.Errorf("reading events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No matching events.")
			return nil
		}

		fmt.Printf("%-20s %-6s %-22s %s\n", "TIME", "LEVEL", "TYPE", "DETAILS")
		for _, e := range events {
			fmt.Printf("%-20s %-6s %-22s %s\n",
				e.Time.Local().Format("2006-01-02 15:04:05"), e.Level, e.Type, formatEventData(e.Data))
		}
		return nil
	},
}

// formatEventData renders an event's data map as stable key=value pairs.
func formatEventData(data map[string]any) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(pairs, " ")
}

func init() {
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "Event type or dotted prefix to match")
	eventsCmd.Flags().StringVar(&eventsLevel, "level", "", "Event level to match (INFO, WARN, ERROR)")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 0, "Only events newer than this duration")
	eventsCmd.Flags().IntVar(&eventsLast, "last", 20, "Show at most the newest N events (0 for all)")
	rootCmd.AddCommand(eventsCmd)
}
