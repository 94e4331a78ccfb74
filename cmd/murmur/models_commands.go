package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"murmur/internal/artifacts"
	"murmur/internal/ipc"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Manage whisper.cpp models",
	}

	modelsCmd.AddCommand(newModelsListCommand(ctx))
	modelsCmd.AddCommand(newModelsPullCommand(ctx))

	return modelsCmd
}

func newModelsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List model sizes and their install state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()

			rows := make([][]string, 0, len(artifacts.ModelSizes))
			for _, size := range artifacts.ModelSizes {
				filename, err := artifacts.ModelFilename(size)
				if err != nil {
					return err
				}
				installed := "no"
				detail := "-"
				if info, statErr := os.Stat(filepath.Join(cfg.ModelsDir(), filename)); statErr == nil {
					installed = "yes"
					detail = humanize.Bytes(uint64(info.Size()))
				}
				marker := ""
				if size == cfg.Whisper.ModelSize {
					marker = "active"
				}
				rows = append(rows, []string{size, installed, detail, marker})
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"MODEL", "INSTALLED", "SIZE", ""},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newModelsPullCommand(ctx *commandContext) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "pull <size>",
		Short: "Download a whisper.cpp model through the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size := args[0]
			if !artifacts.IsModelSize(size) {
				return fmt.Errorf("unknown model size %q (choose from %v)", size, artifacts.ModelSizes)
			}
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StartArtifactDownload(size, "")
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Download started for model %s\n", resp.Status.ID)
				if !watch {
					return nil
				}
				return watchArtifact(client, size, stdout)
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Wait and show download progress")
	return cmd
}
