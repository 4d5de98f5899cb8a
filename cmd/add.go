package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"chunkdl/internal/clipboard"
)

var (
	addOutPath   string
	addFromClip  bool
	addAutoStart bool
)

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "register a new download task",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := ""
		if len(args) == 1 {
			url = args[0]
		}

		if url == "" && addFromClip {
			url = clipboard.ReadURL()
			if url == "" {
				return fmt.Errorf("clipboard does not contain a usable http(s) URL")
			}
		}
		if url == "" {
			return fmt.Errorf("no URL given (pass one, or use --clipboard)")
		}

		destPath := addOutPath
		if destPath != "" && !filepath.IsAbs(destPath) {
			destPath = filepath.Join(manager.DownloadsDir(), destPath)
		}

		id, err := manager.CreateTask(url, destPath)
		if err != nil {
			return err
		}

		fmt.Println(id)

		if addAutoStart {
			if err := manager.StartTask(cmd.Context(), id); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addOutPath, "out", "o", "", "output path (absolute, or relative to the downloads directory)")
	addCmd.Flags().BoolVar(&addFromClip, "clipboard", false, "read the URL from the system clipboard")
	addCmd.Flags().BoolVarP(&addAutoStart, "start", "s", false, "start the task immediately after adding it")
	rootCmd.AddCommand(addCmd)
}
