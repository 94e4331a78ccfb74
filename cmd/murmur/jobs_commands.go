package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"murmur/internal/ipc"
	"murmur/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage transcription jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsLogCommand(ctx))
	jobsCmd.AddCommand(newJobsSegmentsCommand(ctx))
	jobsCmd.AddCommand(newJobsClipCommand(ctx))
	jobsCmd.AddCommand(newJobsCancelCommand(ctx))
	jobsCmd.AddCommand(newJobsDeleteCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListJobs(statusFilter)
				if err != nil {
					return err
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(stdout, "No jobs")
					return nil
				}
				rows := make([][]string, 0, len(resp.Jobs))
				for _, job := range resp.Jobs {
					rows = append(rows, []string{
						job.ID,
						job.Filename,
						string(job.Status),
						string(job.Stage),
						formatProgress(job),
						humanize.Time(job.CreatedAt),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "FILE", "STATUS", "STAGE", "PROGRESS", "CREATED"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statusFilter, "status", nil, "Show only jobs with these statuses")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetJob(args[0])
				if err != nil {
					return err
				}
				job := resp.Job
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader(job.DisplayTitle, colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("ID", statusInfo, job.ID, colorize))
				fmt.Fprintln(stdout, renderStatusLine("File", statusInfo, job.Filename, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Status", jobStatusKind(job.Status), string(job.Status), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Stage", statusInfo, string(job.Stage), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Progress", statusInfo, formatProgress(job), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Created", statusInfo, humanize.Time(job.CreatedAt), colorize))
				if job.ErrorMessage != "" {
					fmt.Fprintln(stdout, renderStatusLine("Error", statusError, job.ErrorMessage, colorize))
				}
				if job.TranscriptPath != "" {
					fmt.Fprintln(stdout, renderStatusLine("Transcript", statusOK, job.TranscriptPath, colorize))
				}
				if job.SubtitlePath != "" {
					fmt.Fprintln(stdout, renderStatusLine("Subtitles", statusOK, job.SubtitlePath, colorize))
				}
				fmt.Fprintln(stdout, renderStatusLine("Summary", summaryStatusKind(job.SummaryStatus), summaryDetail(job), colorize))
				return nil
			})
		},
	}
}

func newJobsLogCommand(ctx *commandContext) *cobra.Command {
	var tail int
	cmd := &cobra.Command{
		Use:   "log <id>",
		Short: "Show job log lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobLog(args[0], tail)
				if err != nil {
					return err
				}
				for _, line := range resp.Lines {
					fmt.Fprintln(stdout, line)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&tail, "tail", "n", 0, "Show only the last N lines")
	return cmd
}

func newJobsSegmentsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "segments <id>",
		Short: "Show the timed transcript segments of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetSegments(args[0])
				if err != nil {
					return err
				}
				if len(resp.Segments) == 0 {
					fmt.Fprintln(stdout, "No segments yet")
					return nil
				}
				rows := make([][]string, 0, len(resp.Segments))
				for _, seg := range resp.Segments {
					rows = append(rows, []string{
						formatSeconds(seg.Start),
						formatSeconds(seg.End),
						seg.Text,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"START", "END", "TEXT"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newJobsClipCommand(ctx *commandContext) *cobra.Command {
	var startSec, endSec float64
	cmd := &cobra.Command{
		Use:   "clip <id>",
		Short: "Extract a WAV clip of the job audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetClip(args[0], startSec, endSec)
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, resp.Path)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&startSec, "start", 0, "Clip start in seconds")
	cmd.Flags().Float64Var(&endSec, "end", 0, "Clip end in seconds")
	cmd.MarkFlagRequired("end")
	return cmd
}

func formatSeconds(sec float64) string {
	return fmt.Sprintf("%.2fs", sec)
}

func newJobsCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CancelJob(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Cancelled job %s\n", resp.Job.ID)
				return nil
			})
		},
	}
}

func newJobsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a job and its working files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.DeleteJob(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Deleted job %s\n", args[0])
				return nil
			})
		},
	}
}

func formatProgress(job jobs.Job) string {
	return fmt.Sprintf("%d%%", int(job.Progress*100))
}

func jobStatusKind(status jobs.Status) statusKind {
	switch status {
	case jobs.StatusDone:
		return statusOK
	case jobs.StatusError:
		return statusError
	case jobs.StatusCancelled:
		return statusWarn
	default:
		return statusInfo
	}
}

func summaryStatusKind(status jobs.SummaryStatus) statusKind {
	switch status {
	case jobs.SummaryDone:
		return statusOK
	case jobs.SummaryError:
		return statusError
	default:
		return statusInfo
	}
}

func summaryDetail(job jobs.Job) string {
	switch job.SummaryStatus {
	case jobs.SummaryDone:
		detail := "Ready"
		if job.SummaryModel != "" {
			detail += " (" + job.SummaryModel + ")"
		}
		if job.SummaryPath != "" {
			detail += " " + job.SummaryPath
		}
		return detail
	case jobs.SummaryRunning:
		return "Running"
	case jobs.SummaryError:
		return strings.TrimSpace(job.SummaryError)
	case jobs.SummarySkipped:
		return "Skipped"
	default:
		return "Not started"
	}
}
