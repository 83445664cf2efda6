package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/franciscod/campus-fetch/internal/config"
	"github.com/franciscod/campus-fetch/internal/database"
	"github.com/franciscod/campus-fetch/internal/model"
	"github.com/franciscod/campus-fetch/internal/pipeline"
	"github.com/franciscod/campus-fetch/internal/report"
)

// errRootsFailed is returned when at least one course could not be synchronized.
var errRootsFailed = errors.New("some courses could not be synchronized")

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [id:name ...]",
		Short: "Synchronize courses into the output directory",
		Long: `Sync logs into the campus and mirrors every given course into
<output>/<course-name>/.

Courses are given as id:name arguments, where id is the number in
course/view.php?id=<id>. Without arguments, the courses of the
configuration file are synchronized.

The previous run of a course is moved to <shadow>/<course-name>/ while the
course is crawled again. Files whose ETag did not change are moved back from
it instead of downloaded. If the course page itself cannot be fetched, the
previous run is restored untouched.

Examples:
  # Synchronize two courses
  campus-fetch sync 1234:algoritmos-i 5678:analisis-ii

  # Synchronize the courses of the configuration file, forums included
  campus-fetch sync --forums

  # Write a Markdown summary to a file
  campus-fetch sync --report markdown --report-file summary.md

Configuration file (.campus-fetch) example:
  site:
    url: https://campus.exactas.uba.ar/
    login: form
    username: alumno
  courses:
    - id: "1234"
      name: algoritmos-i`,
		Args: cobra.ArbitraryArgs,
		RunE: runSyncCmd,
	}

	addConfigFlag(cmd)

	// Layout flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Directory receiving one subdirectory per course")
	cmd.Flags().String("shadow", config.DefaultShadowDir,
		"Directory holding the previous run of a course while it is synchronized")

	// Crawl behavior flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of courses synchronized concurrently")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Bool("forums", false,
		"Also crawl forums and their discussions")
	cmd.Flags().Bool("keep-shadow", false,
		"Keep the previous run next to the new one")

	// Report flags
	cmd.Flags().String("report", config.DefaultReportFormat,
		"Report format: text, markdown or json")
	cmd.Flags().String("report-file", "",
		"Write the report to this file instead of stdout")
	cmd.Flags().Bool("no-db", false,
		"Do not record the runs in the history database")

	return cmd
}

// runSyncCmd executes the sync command.
func runSyncCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, os.LookupEnv)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		cfg.Courses, err = parseRoots(args)
		if err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.RequireCourses(); err != nil {
		return err
	}

	logger, closer, err := setupLogger(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runSync(ctx, cfg, cmd.OutOrStdout(), logger)
}

// parseRoots parses id:name arguments.
func parseRoots(args []string) ([]model.SyncRoot, error) {
	roots := make([]model.SyncRoot, 0, len(args))
	for _, arg := range args {
		root, err := config.ParseRoot(arg)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// runSync synchronizes cfg.Courses and writes the report to out.
func runSync(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	logger.Info("starting sync",
		"courses", len(cfg.Courses),
		"output", cfg.OutputDir,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// saver stays a nil interface without a database
	var saver pipeline.RunSaver
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
		saver = db
	}

	client, err := newSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	engine := newEngine(cfg, client, logger)

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.SyncPipeline(engine, saver, pipeline.WithLogger(logger))
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	reports, batchErr := bp.ProcessBatch(ctx, cfg.Courses)
	logger.Info("sync finished", "elapsed", time.Since(startTime).Round(time.Millisecond))

	if err := writeReport(cfg, out, reports); err != nil {
		return err
	}
	if batchErr != nil {
		return batchErr
	}

	failed := 0
	for _, r := range reports {
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errRootsFailed, failed, len(reports))
	}
	return nil
}

// writeReport writes reports in the configured format, to cfg.ReportFile
// when set or to out otherwise.
func writeReport(cfg *config.Config, out io.Writer, reports []*model.SyncReport) error {
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if _, err := report.New(cfg.ReportFormat, out).WriteBatch(reports); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
