package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"azops-hq/sweeper/pkg/cleanup"
	"azops-hq/sweeper/pkg/cli"
	"azops-hq/sweeper/pkg/config"
	"azops-hq/sweeper/pkg/telemetry/health"
)

// Scheduled job names.
const (
	jobVMCleanup    = "vm-cleanup"
	jobBlobCleanup  = "blob-cleanup"
	jobHistoryPrune = "history-prune"
)

type serveOptions struct {
	metricsAddr      string
	watch            bool
	syncInterval     time.Duration
	historyRetention time.Duration
	shutdownTimeout  time.Duration
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled cleanups and serve metrics and health endpoints",
		Long: `Run VM and blob cleanups on the cron schedules of vm_cleanup.schedule and
storage_cleanup.schedule. Each run only happens while the feature flag
scheduled_vm_cleanup or scheduled_blob_cleanup is enabled for the environment,
so flags can be flipped without a restart.

Configuration is reloaded when a document in --config-dir changes, when the
--config-repo branch moves, and on SIGHUP.

Endpoints on --metrics-addr:
  /metrics  Prometheus metrics
  /healthz  liveness
  /readyz   readiness (configuration and history database)
  /version  build information

Examples:
  sweeper serve --history-db /var/lib/sweeper/history.db
  sweeper serve --metrics-addr 127.0.0.1:9090 --watch=false`,
		Args: cobra.NoArgs,
		RunE: withApp(v, "serve", func(ctx context.Context, a *app, _ []string) error {
			return serve(ctx, a, opts)
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.metricsAddr, "metrics-addr", ":9090", "listen address for metrics and health endpoints")
	flags.BoolVar(&opts.watch, "watch", true, "reload configuration when documents change")
	flags.DurationVar(&opts.syncInterval, "config-repo-interval", 5*time.Minute, "pull interval for --config-repo")
	flags.DurationVar(&opts.historyRetention, "history-retention", 90*24*time.Hour, "prune recorded runs older than this daily (0 disables)")
	flags.DurationVar(&opts.shutdownTimeout, "shutdown-timeout", 30*time.Second, "time allowed for running jobs and requests on shutdown")
	_ = v.BindPFlag("metrics-addr", flags.Lookup("metrics-addr"))
	return cmd
}

func serve(ctx context.Context, a *app, opts serveOptions) error {
	ctx, stop := cli.SetupSignalHandler(ctx)
	defer stop()

	if addr := a.settings.GetString("metrics-addr"); addr != "" {
		opts.metricsAddr = addr
	}

	if err := a.store.ValidateAll(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	scheduler := cleanup.NewScheduler(a.logger)
	if err := scheduleJobs(a, scheduler, opts); err != nil {
		return err
	}

	checker := health.New(5 * time.Second)
	checker.RegisterCheck("config", health.ConfigCheck(a.store))
	if a.history != nil {
		checker.RegisterCheck("history", a.history.Ping)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	checker.Mount(mux, health.VersionInfo{Version: Version, Commit: GitCommit, BuildDate: BuildDate})

	listener, err := net.Listen("tcp", opts.metricsAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.metricsAddr, err)
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	stopReload, err := startReloaders(ctx, a, opts)
	if err != nil {
		_ = srv.Close()
		return err
	}
	defer stopReload()

	scheduler.Start(ctx)
	a.logger.InfoContext(ctx, "sweeper serving",
		"address", listener.Addr().String(),
		"environment", a.store.Environment(),
		"jobs", scheduler.Jobs(),
	)
	for name, next := range scheduler.NextRuns() {
		a.logger.Info("next scheduled run", "job", name, "at", next)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case runErr = <-errCh:
		a.logger.Error("metrics server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		a.logger.Warn("scheduled jobs still running at shutdown timeout")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown metrics server: %w", err))
	}
	return runErr
}

// scheduleJobs registers the cleanup jobs whose documents declare a
// schedule. Schedules are read once; flags are read on every tick.
func scheduleJobs(a *app, scheduler *cleanup.Scheduler, opts serveOptions) error {
	vmCfg, err := a.store.VMCleanup()
	if err != nil {
		return err
	}
	if vmCfg.Schedule != "" {
		cleaner, err := a.vmCleaner()
		if err != nil {
			return err
		}
		job := cleanup.VMCleanupJob(cleaner, vmCfg.PatternTypes, a.store.FeatureFlag)
		if err := scheduler.AddJob(jobVMCleanup, vmCfg.Schedule, job); err != nil {
			return fmt.Errorf("vm_cleanup.schedule: %w", err)
		}
	}

	storage, err := a.store.StorageCleanup()
	if err != nil {
		return err
	}
	if storage.Schedule != "" {
		job := cleanup.BlobCleanupJob(a.blobCleaner(), storage.ArtifactTypes, a.store.FeatureFlag)
		if err := scheduler.AddJob(jobBlobCleanup, storage.Schedule, job); err != nil {
			return fmt.Errorf("storage_cleanup.schedule: %w", err)
		}
	}

	if a.history != nil && opts.historyRetention > 0 {
		err := scheduler.AddJob(jobHistoryPrune, "@daily", func(ctx context.Context) error {
			n, err := a.history.Prune(ctx, time.Now().Add(-opts.historyRetention))
			if err == nil && n > 0 {
				a.logger.InfoContext(ctx, "pruned run history", "runs", n)
			}
			return err
		})
		if err != nil {
			return err
		}
	}

	if len(scheduler.Jobs()) == 0 {
		a.logger.Warn("no cleanup schedules configured; serving metrics only")
	}
	return nil
}

// startReloaders wires every configuration reload trigger to
// Store.ReloadAll. The returned func stops them.
func startReloaders(ctx context.Context, a *app, opts serveOptions) (func(), error) {
	var stops []func()
	stopAll := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}

	sighup, stopSignals := cli.ReloadSignals()
	stops = append(stops, stopSignals)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sighup:
				a.logger.Info("SIGHUP received, reloading configuration")
				a.store.ReloadAll()
			}
		}
	}()

	switch {
	case a.git != nil:
		go a.git.Sync(ctx, opts.syncInterval, a.store.ReloadAll)
	case opts.watch:
		watcher, err := config.NewWatcher(config.WatcherConfig{Dir: a.settings.GetString(keyConfigDir)}, a.logger)
		if err != nil {
			stopAll()
			return nil, err
		}
		stops = append(stops, func() {
			if err := watcher.Stop(); err != nil {
				a.logger.Warn("stop config watcher", "error", err)
			}
		})
		go func() {
			if err := watcher.Watch(ctx, a.store.ReloadAll); err != nil {
				a.logger.Error("config watcher exited", "error", err)
			}
		}()
	}
	return stopAll, nil
}
