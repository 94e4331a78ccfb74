package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"murmur/internal/artifacts"
	"murmur/internal/ipc"
)

const artifactPollInterval = 500 * time.Millisecond

func newArtifactsCommand(ctx *commandContext) *cobra.Command {
	artifactsCmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Manage the whisper.cpp and ffmpeg binaries",
	}

	artifactsCmd.AddCommand(newArtifactsStatusCommand(ctx))
	artifactsCmd.AddCommand(newArtifactsFetchCommand(ctx))

	return artifactsCmd
}

func newArtifactsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show download status for managed binaries and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ArtifactStatuses()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(resp.Statuses))
				for _, status := range resp.Statuses {
					rows = append(rows, []string{
						status.ID,
						string(status.State),
						formatArtifactBytes(status),
						status.Message,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ARTIFACT", "STATE", "DOWNLOADED", "MESSAGE"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newArtifactsFetchCommand(ctx *commandContext) *cobra.Command {
	var sourceURL string
	var watch bool
	cmd := &cobra.Command{
		Use:   "fetch <artifact>",
		Short: "Download a managed binary (whisper-binary or ffmpeg)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StartArtifactDownload(args[0], sourceURL)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Download started for %s\n", resp.Status.ID)
				if !watch {
					return nil
				}
				return watchArtifact(client, args[0], stdout)
			})
		},
	}
	cmd.Flags().StringVar(&sourceURL, "url", "", "Override the release URL to download from")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Wait and show download progress")
	return cmd
}

// watchArtifact polls the daemon until the download reaches a terminal
// state, rendering a byte progress bar along the way.
func watchArtifact(client *ipc.Client, id string, stdout io.Writer) error {
	var bar *progressbar.ProgressBar
	for {
		resp, err := client.ArtifactStatuses()
		if err != nil {
			return err
		}
		var status artifacts.Status
		for _, candidate := range resp.Statuses {
			if candidate.ID == id {
				status = candidate
				break
			}
		}
		switch status.State {
		case artifacts.StateDone:
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(stdout)
			}
			fmt.Fprintf(stdout, "%s\n", status.Message)
			return nil
		case artifacts.StateError:
			if bar != nil {
				fmt.Fprintln(stdout)
			}
			return fmt.Errorf("download failed: %s", status.Message)
		case artifacts.StateDownloading:
			if bar == nil && status.TotalBytes > 0 {
				bar = progressbar.DefaultBytes(status.TotalBytes, "downloading")
			}
			if bar != nil {
				_ = bar.Set64(status.DownloadedBytes)
			}
		}
		time.Sleep(artifactPollInterval)
	}
}

func formatArtifactBytes(status artifacts.Status) string {
	if status.DownloadedBytes <= 0 {
		return "-"
	}
	downloaded := humanize.Bytes(uint64(status.DownloadedBytes))
	if status.TotalBytes > 0 {
		return fmt.Sprintf("%s / %s", downloaded, humanize.Bytes(uint64(status.TotalBytes)))
	}
	return downloaded
}
