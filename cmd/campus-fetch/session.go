package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/franciscod/campus-fetch/internal/auth"
	"github.com/franciscod/campus-fetch/internal/config"
	"github.com/franciscod/campus-fetch/internal/crawler"
	"github.com/franciscod/campus-fetch/internal/extract"
	"github.com/franciscod/campus-fetch/internal/fetcher"
	"github.com/franciscod/campus-fetch/internal/log"
)

// addConfigFlag registers --config on cmd.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .campus-fetch in current, XDG config or home directory)")
}

// getBoolFlag retrieves a bool flag from the command or its root.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getStringFlag retrieves a string flag from the command or its root.
func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// flagChanged reports whether cmd has the flag and the user set it.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// setupLogger creates the process logger from the global flags.
func setupLogger(cmd *cobra.Command) (*slog.Logger, io.Closer, error) {
	logger, closer, err := log.New(cmd.ErrOrStderr(), log.Options{
		Verbose: getBoolFlag(cmd, "verbose"),
		JSON:    getBoolFlag(cmd, "json-log"),
		File:    getStringFlag(cmd, "log-file"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, closer, nil
}

// buildConfig assembles the configuration: defaults, then the config file,
// then the environment, then the flags the user set.
func buildConfig(cmd *cobra.Command, lookupEnv func(string) (string, bool)) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path must exist; otherwise running without a file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.Apply(cfg)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	config.ApplyEnv(cfg, lookupEnv)

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Verbose = getBoolFlag(cmd, "verbose")

	return cfg, nil
}

// applyFlags copies the flags the user set over cfg. Commands register
// different subsets; flags a command lacks are skipped.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flagChanged(cmd, "url") {
		if cfg.BaseURL, err = flags.GetString("url"); err != nil {
			return err
		}
	}
	if flagChanged(cmd, "login") {
		if cfg.LoginMethod, err = flags.GetString("login"); err != nil {
			return err
		}
	}
	if flagChanged(cmd, "output") {
		if cfg.OutputDir, err = flags.GetString("output"); err != nil {
			return err
		}
	}
	if flagChanged(cmd, "shadow") {
		if cfg.ShadowDir, err = flags.GetString("shadow"); err != nil {
			return err
		}
	}
	if flagChanged(cmd, "batch") {
		if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
			return err
		}
	}
	if flagChanged(cmd, "timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flagChanged(cmd, "forums") {
		if cfg.Forums, err = flags.GetBool("forums"); err != nil {
			return err
		}
	}
	if flagChanged(cmd, "keep-shadow") {
		if cfg.KeepShadow, err = flags.GetBool("keep-shadow"); err != nil {
			return err
		}
	}
	if flagChanged(cmd, "report") {
		if cfg.ReportFormat, err = flags.GetString("report"); err != nil {
			return err
		}
	}
	if flagChanged(cmd, "report-file") {
		if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
			return err
		}
	}
	if flagChanged(cmd, "no-db") {
		noDB, err := flags.GetBool("no-db")
		if err != nil {
			return err
		}
		cfg.SaveToDB = !noDB
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// newSession creates the HTTP client for cfg and logs it in.
func newSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*fetcher.Client, error) {
	client, err := fetcher.NewClient(cfg.BaseURL,
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithCookie(cfg.SessionCookie),
		fetcher.WithHeaders(cfg.Headers),
		fetcher.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	authenticator, err := auth.New(cfg.LoginMethod, client,
		auth.Credentials{Username: cfg.Username, Password: cfg.Password},
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if err := authenticator.Login(ctx); err != nil {
		return nil, fmt.Errorf("failed to log in to %s: %w", cfg.BaseURL, err)
	}

	logger.Info("session established", "url", cfg.BaseURL, "login", cfg.LoginMethod)
	return client, nil
}

// newEngine creates the crawl engine for cfg.
func newEngine(cfg *config.Config, client *fetcher.Client, logger *slog.Logger) *crawler.Engine {
	return crawler.NewEngine(client, extract.NewMoodle(),
		crawler.WithOutputDir(cfg.OutputDir),
		crawler.WithShadowDir(cfg.ShadowDir),
		crawler.WithForums(cfg.Forums),
		crawler.WithKeepShadow(cfg.KeepShadow),
		crawler.WithBulletMark(cfg.BulletMark),
		crawler.WithIgnorePatterns(cfg.IgnorePatterns),
		crawler.WithPolicyAgreer(auth.NewPolicyAgreer(client, auth.WithLogger(logger))),
		crawler.WithLogger(logger),
	)
}
