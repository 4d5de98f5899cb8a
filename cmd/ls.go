package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "list all tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		records := manager.List()
		if len(records) == 0 {
			fmt.Println("no tasks")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tSIZE\tURL")
		for _, r := range records {
			size := "?"
			if r.Total > 0 {
				size = humanize.Bytes(uint64(r.Total))
			}
			fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%s\t%s\n",
				shortID(r.ID.String()), r.Status, r.Progress, size, r.URL)
		}

		stats := manager.GetStats()
		fmt.Printf("\n%d pending, %d running, %d paused, %d completed, %d failed, %d cancelled\n",
			stats.Pending, stats.Running, stats.Paused, stats.Completed, stats.Failed, stats.Cancelled)
		return nil
	},
}

func shortID(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:8]
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
