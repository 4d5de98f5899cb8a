package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"chunkdl/internal/tui"
)

var getOutPath string

// getCmd is the one-shot path: add, start, and watch a single download in
// one invocation, for the common case of "just fetch this file".
var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "download a single URL and watch it to completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]

		destPath := getOutPath
		if destPath != "" && !filepath.IsAbs(destPath) {
			destPath = filepath.Join(manager.DownloadsDir(), destPath)
		}

		id, err := manager.CreateTask(url, destPath)
		if err != nil {
			return err
		}

		sub, unsubscribe := manager.Subscribe(tui.EventChannelBuffer)
		defer unsubscribe()

		if err := manager.StartTask(cmd.Context(), id); err != nil {
			return err
		}

		filtered := make(chan any, tui.EventChannelBuffer)
		go func() {
			defer close(filtered)
			for e := range sub {
				if taskIDOf(e) != id {
					continue
				}
				filtered <- e
				if isTerminal(e, id) {
					return
				}
			}
		}()

		if err := tui.Run(url, filtered); err != nil {
			return err
		}

		rec, err := manager.QueryDetail(id)
		if err != nil {
			return err
		}
		if rec.Status != "Completed" {
			return fmt.Errorf("download ended with status %s", rec.Status)
		}
		fmt.Println(rec.File)
		return nil
	},
}

func init() {
	getCmd.Flags().StringVarP(&getOutPath, "out", "o", "", "output path")
	rootCmd.AddCommand(getCmd)
}
