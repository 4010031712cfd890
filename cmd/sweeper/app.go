package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"azops-hq/sweeper/pkg/cleanup"
	"azops-hq/sweeper/pkg/cleanup/history"
	"azops-hq/sweeper/pkg/cli"
	"azops-hq/sweeper/pkg/cloud"
	"azops-hq/sweeper/pkg/cloud/inventory"
	"azops-hq/sweeper/pkg/cloud/s3"
	"azops-hq/sweeper/pkg/config"
	"azops-hq/sweeper/pkg/config/gitsource"
	"azops-hq/sweeper/pkg/patterns"
	"azops-hq/sweeper/pkg/retention"
	"azops-hq/sweeper/pkg/telemetry/logging"
	"azops-hq/sweeper/pkg/telemetry/metrics"
	"azops-hq/sweeper/pkg/telemetry/tracing"
)

// app holds the components shared by every command. It is built once per
// invocation from the viper settings.
type app struct {
	settings *viper.Viper
	out      io.Writer
	format   cli.OutputFormat

	logger    *slog.Logger
	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	store     *config.Store
	registry  *patterns.Registry
	history   *history.Store
	inventory *inventory.Inventory
	factory   *cloud.Factory
	git       *gitsource.Source
}

func newApp(ctx context.Context, cmd *cobra.Command, v *viper.Viper) (*app, error) {
	format, err := cli.ParseFormat(v.GetString(keyOutput))
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:  v.GetString(keyLogLevel),
		Format: v.GetString(keyLogFormat),
		Redact: true,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, cli.NewUsageError(keyLogLevel, err.Error())
	}
	slog.SetDefault(logger)

	a := &app{
		settings: v,
		out:      cmd.OutOrStdout(),
		format:   format,
		logger:   logger,
		metrics:  metrics.NewCollector(metrics.Config{}, nil),
	}

	a.tracer, err = tracing.New(tracing.Config{
		Enabled:        v.GetString(keyTracingEndpoint) != "",
		Endpoint:       v.GetString(keyTracingEndpoint),
		Insecure:       v.GetBool(keyTracingInsecure),
		Sampler:        v.GetString(keyTracingSampler),
		ServiceName:    "sweeper",
		ServiceVersion: Version,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	source, err := a.configSource(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store, err = config.NewStore(config.Options{
		Dir:         v.GetString(keyConfigDir),
		Source:      source,
		Environment: v.GetString(keyEnvironment),
		Logger:      logger,
		Observer:    a.metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry = patterns.NewRegistry(a.store,
		patterns.WithLogger(logger),
		patterns.WithObserver(a.metrics),
	)

	if path := v.GetString(keyHistoryDB); path != "" {
		a.history, err = history.Open(history.Config{
			Path:   path,
			Driver: v.GetString(keyHistoryDriver),
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	if path := v.GetString(keyInventory); path != "" {
		a.inventory, err = inventory.Load(path, inventory.Options{Persist: true, Logger: logger})
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.factory = cloud.NewFactory(cloud.Options{
		Inventory:             a.inventory,
		AzureConnectionString: v.GetString(keyAzureConnString),
		S3: s3.Config{
			Region:       v.GetString(keyS3Region),
			Endpoint:     v.GetString(keyS3Endpoint),
			UsePathStyle: v.GetBool(keyS3PathStyle),
		},
		Logger: logger,
	})
	return a, nil
}

// configSource clones --config-repo when set. A nil source makes the
// Store read --config-dir.
func (a *app) configSource(ctx context.Context) (config.DocumentSource, error) {
	url := a.settings.GetString(keyConfigRepo)
	if url == "" {
		return nil, nil
	}

	src, err := gitsource.New(gitsource.Config{
		URL:    url,
		Branch: a.settings.GetString(keyConfigRepoBranch),
		Path:   a.settings.GetString(keyConfigRepoPath),
		Token:  a.settings.GetString(keyConfigRepoToken),
	}, a.logger)
	if err != nil {
		return nil, cli.NewUsageError(keyConfigRepo, err.Error())
	}
	if err := src.Clone(ctx); err != nil {
		return nil, fmt.Errorf("clone configuration repository: %w", err)
	}
	a.git = src
	return src, nil
}

func (a *app) cleanupOptions() []cleanup.Option {
	opts := []cleanup.Option{
		cleanup.WithLogger(a.logger),
		cleanup.WithRunObserver(a.metrics),
		cleanup.WithTracer(a.tracer.Tracer()),
		cleanup.WithEvaluatorOptions(retention.WithObserver(a.metrics)),
	}
	if a.history != nil {
		opts = append(opts, cleanup.WithHistory(a.history))
	}
	return opts
}

func (a *app) vmCleaner() (*cleanup.VMCleaner, error) {
	resources, err := a.store.AzureResources()
	if err != nil {
		return nil, err
	}
	svc, err := a.factory.VMService(resources.Azure)
	if err != nil {
		return nil, fmt.Errorf("create VM service: %w", err)
	}
	return cleanup.NewVMCleaner(a.store, a.registry, svc, a.cleanupOptions()...), nil
}

func (a *app) blobCleaner() *cleanup.BlobCleaner {
	return cleanup.NewBlobCleaner(a.store, a.factory.BlobService, a.cleanupOptions()...)
}

func (a *app) requireHistory() error {
	if a.history == nil {
		return cli.NewUsageError(keyHistoryDB, "run history is disabled; set --history-db or SWEEPER_HISTORY_DB")
	}
	return nil
}

// render writes data in the selected output format. Table output is
// followed by the summary line of values that have one.
func (a *app) render(data any) error {
	formatter, err := cli.NewFormatter(a.format)
	if err != nil {
		return err
	}
	if err := formatter.FormatTo(a.out, data); err != nil {
		return err
	}
	if s, ok := data.(summarizer); ok && a.format == cli.FormatTable {
		_, err = fmt.Fprintln(a.out, s.Summary())
	}
	return err
}

// Close flushes tracing and releases the history database.
func (a *app) Close() {
	var errs []error
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.tracer.Shutdown(ctx))
		cancel()
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown incomplete", "error", err)
	}
}

// withApp adapts a command body that needs the shared components.
func withApp(v *viper.Viper, name string, run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx, cmd, v)
		if err != nil {
			return wrap(name, err)
		}
		defer a.Close()

		return wrap(name, run(ctx, a, args))
	}
}

func wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	var usage *cli.UsageError
	if errors.As(err, &usage) {
		return err
	}
	return cli.NewCommandError(name, err)
}
