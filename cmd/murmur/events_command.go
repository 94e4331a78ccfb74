package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"murmur/internal/events"
	"murmur/internal/ipc"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var tail int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent daemon events",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TailEvents(tail)
				if err != nil {
					return err
				}
				for _, evt := range resp.Events {
					printEvent(stdout, evt)
				}
				if !follow {
					return nil
				}
				cursor := resp.Next
				for {
					if err := cmd.Context().Err(); err != nil {
						return nil
					}
					fetched, err := client.FetchEvents(cursor, 0, 5000)
					if err != nil {
						return err
					}
					for _, evt := range fetched.Events {
						printEvent(stdout, evt)
					}
					cursor = fetched.Next
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new events")
	cmd.Flags().IntVarP(&tail, "tail", "n", 20, "Number of recent events to show first")
	return cmd
}

func printEvent(w io.Writer, evt ipc.Event) {
	ts := evt.Timestamp.Format("15:04:05")
	switch evt.Type {
	case events.TypeJobLog:
		fmt.Fprintf(w, "%s  %s  %s\n", ts, evt.JobID, evt.Line)
	case events.TypeJobUpdated:
		if evt.Job != nil {
			fmt.Fprintf(w, "%s  %s  %s/%s %s\n", ts, evt.Job.ID, evt.Job.Status, evt.Job.Stage, formatProgress(*evt.Job))
		}
	default:
		fmt.Fprintf(w, "%s  %s\n", ts, evt.Type)
	}
}
