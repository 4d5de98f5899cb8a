package cmd

import "github.com/spf13/cobra"

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "remove a task's record (not while running or paused)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveTaskID(args[0])
		if err != nil {
			return err
		}
		return manager.RemoveTask(id)
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
