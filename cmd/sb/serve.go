package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/siteboard/siteboard/internal/dashboard"
	"github.com/siteboard/siteboard/internal/feed"
	"github.com/siteboard/siteboard/internal/notify"
	"github.com/siteboard/siteboard/internal/reconcile"
	"github.com/siteboard/siteboard/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Siteboard service",
		Long: `Runs the long-lived Siteboard process: loads the board from the store,
follows the change feed, reconciles remote changes, serves the read-only
dashboard, and compacts the feed on the configured schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	cmd.Flags().IntVar(&port, "port", 0, "dashboard port (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port <= 0 {
		port = cfg.Dashboard.Port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(gormDB, cfg.Client)
	b, snap, err := loadBoard(ctx, st)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded %d assignments across %d jobs\n", len(snap.Assignments), len(snap.Jobs))

	notifier, err := notify.New(cfg.Notify)
	if err != nil {
		return err
	}
	if notifier.Enabled() {
		fmt.Fprintln(out, "Alerts enabled")
	}

	var alerts reconcile.Alerter
	if notifier.Enabled() {
		alerts = notifier
	}
	r, err := reconcile.New(reconcile.Opts{
		Board:             b,
		Store:             st,
		Actor:             cfg.Client,
		Alerts:            alerts,
		OrphanMaxAttempts: cfg.Feed.OrphanMaxAttempts,
		OrphanTTL:         cfg.Feed.OrphanTTL(),
	})
	if err != nil {
		return err
	}

	watcher, err := feed.NewWatcher(feed.WatcherOpts{DB: gormDB, PollInterval: cfg.Feed.PollInterval()})
	if err != nil {
		return err
	}
	if err := watcher.Seed(); err != nil {
		return err
	}
	go r.Run(ctx, watcher.Run(ctx))
	fmt.Fprintf(out, "Following change feed as %q every %s\n", cfg.Client, cfg.Feed.PollInterval())

	compactor, err := feed.NewCompactor(gormDB, cfg.Feed.CompactSchedule, cfg.Feed.CompactKeep)
	if err != nil {
		return err
	}
	go compactor.Run(ctx)

	return dashboard.Start(ctx, dashboard.StartOpts{
		DB:    gormDB,
		Board: b,
		Port:  port,
		Out:   out,
	})
}
