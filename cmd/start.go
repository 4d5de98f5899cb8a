package cmd

import (
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "start a pending or paused task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveTaskID(args[0])
		if err != nil {
			return err
		}
		return manager.StartTask(cmd.Context(), id)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
