package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/franciscod/campus-fetch/internal/catalog"
	"github.com/franciscod/campus-fetch/internal/config"
)

// NewCoursesCmd creates the courses command.
func NewCoursesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List the courses the account is enrolled in",
		Long: `Courses logs into the campus and lists every enrolled course with the
id sync expects.

Examples:
  # List enrolled courses
  campus-fetch courses

  # Append them to the configuration file
  campus-fetch courses --yaml >> .campus-fetch`,
		Args: cobra.NoArgs,
		RunE: runCoursesCmd,
	}

	addConfigFlag(cmd)
	cmd.Flags().Bool("yaml", false,
		"Print the courses as the courses section of a configuration file")

	return cmd
}

// runCoursesCmd executes the courses command.
func runCoursesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, os.LookupEnv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	asYAML, err := cmd.Flags().GetBool("yaml")
	if err != nil {
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

	return runCourses(ctx, cfg, asYAML, cmd.OutOrStdout(), logger)
}

// runCourses lists the enrolled courses on out.
func runCourses(ctx context.Context, cfg *config.Config, asYAML bool, out io.Writer, logger *slog.Logger) error {
	client, err := newSession(ctx, cfg, logger)
	if err != nil {
		return err
	}

	courses, err := catalog.New(client, catalog.WithLogger(logger)).EnrolledCourses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}

	if asYAML {
		data, err := config.MarshalCourses(catalog.Roots(courses))
		if err != nil {
			return fmt.Errorf("failed to marshal courses: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	if len(courses) == 0 {
		fmt.Fprintln(out, "No enrolled courses found.")
		return nil
	}

	fmt.Fprintf(out, "Enrolled courses (%d):\n\n", len(courses))
	fmt.Fprintf(out, "  %-8s  %s\n", "ID", "Name")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))
	for _, c := range courses {
		fmt.Fprintf(out, "  %-8d  %s\n", c.ID, c.FullName)
	}
	fmt.Fprintln(out, "\nUse 'campus-fetch sync <id>:<name>' to synchronize a course.")
	return nil
}
