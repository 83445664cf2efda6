package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for campus-fetch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campus-fetch",
		Short: "Incremental mirror of Moodle campus courses",
		Long: `campus-fetch logs into a Moodle campus and synchronizes courses into a
local directory tree.

Every course page becomes a Markdown file; resources, folders and forum
attachments are downloaded next to it. The previous run is kept aside while
a course is synchronized, and files that did not change are moved back from
it instead of being downloaded again.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-file", "", "Also write logs to this file, rotated by size")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON")

	// Add subcommands
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewCoursesCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
