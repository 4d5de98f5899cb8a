package cmd

import "github.com/spf13/cobra"

var pauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "pause a running task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveTaskID(args[0])
		if err != nil {
			return err
		}
		return manager.PauseTask(id)
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd)
}
