package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"murmur/internal/ipc"
	"murmur/internal/jobs"
)

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "summarize <id>",
		Short: "Summarize a finished transcript with Ollama",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Summarize(args[0], force)
				if err != nil {
					return err
				}
				job := resp.Job
				switch job.SummaryStatus {
				case jobs.SummaryDone:
					fmt.Fprintf(stdout, "Summary ready: %s\n", job.SummaryPath)
				case jobs.SummaryRunning:
					fmt.Fprintln(stdout, "Summarization already in progress")
				case jobs.SummarySkipped:
					fmt.Fprintln(stdout, "Summarization is disabled in the configuration")
				case jobs.SummaryError:
					fmt.Fprintf(stdout, "Summarization failed: %s\n", job.SummaryError)
				default:
					fmt.Fprintln(stdout, "Summarization started")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Regenerate even if a summary already exists")
	return cmd
}
