package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"murmur/internal/ipc"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <file> [file...]",
		Short: "Queue audio files for transcription",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				for _, arg := range args {
					path, err := filepath.Abs(arg)
					if err != nil {
						return fmt.Errorf("resolve path %q: %w", arg, err)
					}
					resp, err := client.Submit(path)
					if err != nil {
						return fmt.Errorf("submit %s: %w", arg, err)
					}
					fmt.Fprintf(stdout, "Queued %s as job %s\n", resp.Job.Filename, resp.Job.ID)
				}
				return nil
			})
		},
	}
}
