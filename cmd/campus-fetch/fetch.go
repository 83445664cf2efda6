package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/franciscod/campus-fetch/internal/config"
	"github.com/franciscod/campus-fetch/internal/report"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a single campus URL outside any course",
		Long: `Fetch processes one campus URL the way sync processes a link found in
a course: a resource or file is downloaded, a folder is downloaded whole, a
page becomes a Markdown file and a course page is crawled.

Results are written directly below --output. Nothing is rotated and nothing
is recorded in the history.

Examples:
  # Download a folder into the current directory
  campus-fetch fetch -o . "https://campus.exactas.uba.ar/mod/folder/view.php?id=9"

  # Crawl a course once, without touching downloads/
  campus-fetch fetch -o /tmp/algo1 "course/view.php?id=1234"`,
		Args: cobra.ExactArgs(1),
		RunE: runFetchCmd,
	}

	addConfigFlag(cmd)
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Directory receiving the fetched content")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Bool("forums", false,
		"Also crawl forums and their discussions")
	cmd.Flags().String("report", config.DefaultReportFormat,
		"Report format: text, markdown or json")

	return cmd
}

// runFetchCmd executes the fetch command.
func runFetchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, os.LookupEnv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closer, err := setupLogger(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runFetch(ctx, cfg, args[0], cmd.OutOrStdout(), logger)
}

// runFetch fetches target into cfg.OutputDir and writes the report to out.
func runFetch(ctx context.Context, cfg *config.Config, target string, out io.Writer, logger *slog.Logger) error {
	client, err := newSession(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result, fetchErr := newEngine(cfg, client, logger).Fetch(ctx, target, cfg.OutputDir)
	if result != nil {
		if _, err := report.New(cfg.ReportFormat, out).Write(result); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if fetchErr != nil {
		return fmt.Errorf("failed to fetch %s: %w", target, fetchErr)
	}
	return nil
}
