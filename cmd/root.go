package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chunkdl/internal/config"
	"chunkdl/internal/taskmanager"
	"chunkdl/internal/tui"
	"chunkdl/internal/xlog"
)

// manager is the single Task Manager instance backing every subcommand in
// this process. Built in PersistentPreRunE once settings and the instance
// lock are in place.
var manager *taskmanager.Manager

// rootCmd is chunkdl's bare entry point; it has no Run of its own — every
// operation lives under a subcommand, since there is no daemon to drop into
// a full-screen dashboard without one.
var rootCmd = &cobra.Command{
	Use:   "chunkdl",
	Short: "a chunked, resumable multi-connection downloader",
	Long:  `chunkdl splits range-capable downloads into concurrent chunks and resumes them across restarts.`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "completion":
			return nil
		}

		locked, err := AcquireLock()
		if err != nil {
			return err
		}
		if !locked {
			return fmt.Errorf("another chunkdl process is already running against this downloads directory")
		}

		settings, err := config.LoadSettings()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		rc := settings.ToRuntimeConfig()
		tui.ApplyTheme(settings.General.Theme)

		manager = taskmanager.New(rc, nil)
		if err := manager.Load(); err != nil {
			return fmt.Errorf("failed to load task table: %w", err)
		}
		if rc.AutoResumeOnStart {
			if err := manager.AutoResume(); err != nil {
				xlog.Debug("root: auto-resume scan failed: %v", err)
			}
		}
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if manager != nil {
			manager.Shutdown()
		}
		if err := ReleaseLock(); err != nil {
			xlog.Debug("root: failed to release lock: %v", err)
		}
	},
}

// Execute adds all child commands to the root command and runs it. Called
// by main.main(); must only happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
