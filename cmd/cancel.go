package cmd

import "github.com/spf13/cobra"

var cancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "cancel a task and discard its partial state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveTaskID(args[0])
		if err != nil {
			return err
		}
		return manager.CancelTask(id)
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}
