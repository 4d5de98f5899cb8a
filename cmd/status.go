package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"chunkdl/internal/events"
	"chunkdl/internal/ids"
	"chunkdl/internal/tui"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "show a task's detail, optionally following it live",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveTaskID(args[0])
		if err != nil {
			return err
		}

		if statusWatch {
			return watchTask(id)
		}

		rec, err := manager.QueryDetail(id)
		if err != nil {
			return err
		}
		fmt.Printf("id:       %s\n", rec.ID)
		fmt.Printf("url:      %s\n", rec.URL)
		fmt.Printf("file:     %s\n", rec.File)
		fmt.Printf("status:   %s\n", rec.Status)
		fmt.Printf("progress: %.1f%%\n", rec.Progress)
		if rec.Total > 0 {
			fmt.Printf("size:     %s / %s\n", humanize.Bytes(uint64(rec.Downloaded)), humanize.Bytes(uint64(rec.Total)))
		}
		return nil
	},
}

// watchTask streams the task's own events into a terminal progress view
// until the task reaches a terminal state, filtering the Manager's
// all-tasks subscription down to the one id requested.
func watchTask(id ids.TaskID) error {
	rec, err := manager.QueryDetail(id)
	if err != nil {
		return err
	}

	all, unsubscribe := manager.Subscribe(tui.EventChannelBuffer)
	defer unsubscribe()

	filtered := make(chan any, tui.EventChannelBuffer)
	done := make(chan struct{})
	go func() {
		defer close(filtered)
		for {
			select {
			case e, ok := <-all:
				if !ok {
					return
				}
				if taskIDOf(e) == id {
					filtered <- e
				}
				if isTerminal(e, id) {
					return
				}
			case <-done:
				return
			}
		}
	}()

	err = tui.Run(rec.URL, filtered)
	close(done)
	return err
}

func taskIDOf(e any) ids.TaskID {
	switch v := e.(type) {
	case events.Started:
		return v.TaskID
	case events.Progress:
		return v.TaskID
	case events.Completed:
		return v.TaskID
	case events.Failed:
		return v.TaskID
	case events.Paused:
		return v.TaskID
	case events.Resumed:
		return v.TaskID
	case events.Cancelled:
		return v.TaskID
	}
	return ids.TaskID{}
}

func isTerminal(e any, id ids.TaskID) bool {
	if taskIDOf(e) != id {
		return false
	}
	switch e.(type) {
	case events.Completed, events.Failed, events.Cancelled:
		return true
	}
	return false
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "follow the task live in a terminal progress view")
	rootCmd.AddCommand(statusCmd)
}
