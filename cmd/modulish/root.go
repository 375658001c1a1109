package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/dsaub/modulish-bot/internal/config"
	"github.com/dsaub/modulish-bot/internal/host"
	"github.com/dsaub/modulish-bot/internal/install"
	"github.com/dsaub/modulish-bot/internal/plugin"
)

// newRootCmd builds the modulish command tree.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "modulish",
		Short:         "Plugin-hosting bot shell",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to config.toml")

	run := &cobra.Command{
		Use:   "run",
		Short: "Start the host and serve the management console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd, configPath)
		},
	}
	root.AddCommand(run)

	return root
}

// runHost boots the plugin subsystem and hands control to the console.
func runHost(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := host.NewHub(cfg.Bot.Name, cfg.Bot.Prefix, logger)

	fetcher := install.NewFetcher()
	fetcher.Client = &http.Client{Timeout: cfg.FetchTimeout()}
	installer := install.NewInstaller(cfg.Paths.Plugins,
		install.WithFetcher(fetcher),
		install.WithLogger(logger),
	)

	manager := plugin.NewManager(plugin.ManagerConfig{
		PluginsRoot: cfg.Paths.Plugins,
		ConfigRoot:  cfg.Paths.Config,
		Hub:         hub,
		Installer:   installer,
		Logger:      logger,
	})

	ctx := cmd.Context()
	if err := manager.LoadAll(ctx); err != nil {
		logger.Warn("some plugins failed to load", "error", err)
	}

	console := newConsole(manager, hub)
	console.printBanner(cfg.Bot.Name, manager.Registry().Len())
	return console.run(ctx)
}
