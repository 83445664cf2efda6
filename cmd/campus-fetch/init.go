package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/franciscod/campus-fetch/internal/config"
)

//go:embed templates/campus-fetch.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a campus-fetch configuration file",
		Long: `Init creates a new .campus-fetch configuration file in the current directory.

The generated file includes:
- The campus URL and login method
- An empty course list to fill with 'campus-fetch courses --yaml'
- Documentation for all available options

Examples:
  # Create .campus-fetch in current directory
  campus-fetch init

  # Create config file at a specific path
  campus-fetch init -o ~/.config/campus-fetch/config.yaml

  # Force overwrite existing file
  campus-fetch init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/campus-fetch.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// 0600: the file may hold the campus password
	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  - Set CAMPUS_FETCH_USERNAME and CAMPUS_FETCH_PASSWORD, or fill site.username")
	fmt.Fprintln(out, "  - Run 'campus-fetch courses --yaml' and paste the courses you want")
	fmt.Fprintln(out, "  - Run 'campus-fetch sync'")

	return nil
}
