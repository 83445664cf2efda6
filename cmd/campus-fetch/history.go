package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/franciscod/campus-fetch/internal/config"
	"github.com/franciscod/campus-fetch/internal/database"
)

// defaultHistoryLimit is the number of runs listed per course.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [course-id]",
		Short: "Show the recorded synchronization runs",
		Long: `History reads the run database written by sync.

Without arguments it lists every course with recorded runs. With a course id
it lists the runs of that course, newest first. --files lists the files a
run placed in the output tree.

Examples:
  # List courses with history
  campus-fetch history

  # List the runs of a course
  campus-fetch history 1234

  # Show the files of run 7
  campus-fetch history --files 7`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	addConfigFlag(cmd)
	cmd.Flags().Int64("files", 0,
		"List the files of the run with this id")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, os.LookupEnv)
	if err != nil {
		return err
	}

	runID, err := cmd.Flags().GetInt64("files")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	var rootID string
	if len(args) > 0 {
		root, err := config.ParseRoot(args[0])
		if err != nil {
			return err
		}
		rootID = root.ID
	}

	out := cmd.OutOrStdout()
	db, err := database.Open(cfg.DBDir, database.Options{})
	if errors.Is(err, database.ErrNotFound) {
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'campus-fetch sync' to synchronize a course.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	switch {
	case runID > 0:
		return listRunFiles(ctx, db, runID, out)
	case rootID != "":
		return listRuns(ctx, db, rootID, limit, out)
	default:
		return listRoots(ctx, db, out)
	}
}

// listRoots lists every course with recorded runs.
func listRoots(ctx context.Context, db *database.HistoryDB, out io.Writer) error {
	roots, err := db.ListRoots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}

	if len(roots) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	fmt.Fprintf(out, "Synchronized courses (%d):\n\n", len(roots))
	fmt.Fprintf(out, "  %-8s  %-30s  %-5s  %s\n", "ID", "Name", "Runs", "Last run")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))
	for _, r := range roots {
		fmt.Fprintf(out, "  %-8s  %-30s  %-5d  %s\n",
			r.Root.ID, r.Root.Name, r.Runs, r.LastRun.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(out, "\nUse 'campus-fetch history <id>' to see the runs of a course.")
	return nil
}

// listRuns lists the runs of one course.
func listRuns(ctx context.Context, db *database.HistoryDB, rootID string, limit int, out io.Writer) error {
	runs, err := db.ListRuns(ctx, rootID, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs recorded for course %s\n", rootID)
		return nil
	}

	fmt.Fprintf(out, "Runs of %s (%s):\n\n", runs[0].Root.Name, rootID)
	fmt.Fprintf(out, "  %-6s  %-19s  %-9s  %5s  %5s  %5s  %5s  %s\n",
		"ID", "Started", "Duration", "Pages", "New", "Kept", "Fail", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 78))
	for _, r := range runs {
		status := "ok"
		if r.Failed() {
			status = "FAILED: " + r.Error
		}
		fmt.Fprintf(out, "  %-6d  %-19s  %-9s  %5d  %5d  %5d  %5d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.Pages, r.Downloaded, r.Reclaimed, r.Failures,
			status,
		)
	}
	fmt.Fprintln(out, "\nUse 'campus-fetch history --files <id>' to see the files of a run.")
	return nil
}

// listRunFiles lists the files of one run.
func listRunFiles(ctx context.Context, db *database.HistoryDB, runID int64, out io.Writer) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run %d: %w", runID, err)
	}
	if run == nil {
		return fmt.Errorf("run with ID %d not found", runID)
	}

	files, err := db.GetRunFiles(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to list files of run %d: %w", runID, err)
	}

	fmt.Fprintf(out, "Files of run %d, %s (%d):\n\n", runID, run.Root.Name, len(files))
	for _, f := range files {
		mark := "+"
		if f.Reclaimed {
			mark = "="
		}
		fmt.Fprintf(out, "  [%s] %s\n", mark, f.Path)
	}
	fmt.Fprintln(out, "\n[+] downloaded  [=] kept from the previous run")
	return nil
}
