package cmd

import "github.com/spf13/cobra"

var resumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "resume a paused task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveTaskID(args[0])
		if err != nil {
			return err
		}

		rec, err := manager.QueryDetail(id)
		if err != nil {
			return err
		}

		// A task paused before this process started has no live Engine to
		// resume; it must be started fresh so it re-validates against its
		// resume record (spec.md §4.5 step 4).
		if rec.Status == "Paused" {
			if err := manager.ResumeTask(id); err == nil {
				return nil
			}
			return manager.StartTask(cmd.Context(), id)
		}

		return manager.ResumeTask(id)
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
