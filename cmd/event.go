package cmd

import (
	"os"

	"github.com/frahmantamala/workforce-management/internal/core/events"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "events",
	Short: "Event catalog commands",
}

var listEventsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the events published after a committed change",
	Run: func(cmd *cobra.Command, args []string) {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Event", "Published when"})
		for _, eventType := range events.EventTypes {
			tw.AppendRow(table.Row{eventType, events.Describe(eventType)})
		}
		tw.SetStyle(table.StyleLight)
		tw.Render()
	},
}

func init() {
	eventCmd.AddCommand(listEventsCmd)
}
