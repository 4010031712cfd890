package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"azops-hq/sweeper/pkg/cli"
)

// Setting keys. Each is a persistent flag and, through viper, the
// environment variable SWEEPER_<KEY> with dashes replaced by underscores.
const (
	keyConfigDir        = "config-dir"
	keyEnvironment      = "environment"
	keyConfigRepo       = "config-repo"
	keyConfigRepoBranch = "config-repo-branch"
	keyConfigRepoPath   = "config-repo-path"
	keyConfigRepoToken  = "config-repo-token"
	keyHistoryDB        = "history-db"
	keyHistoryDriver    = "history-driver"
	keyInventory        = "inventory"
	keyLogLevel         = "log-level"
	keyLogFormat        = "log-format"
	keyOutput           = "output"
	keyTracingEndpoint  = "tracing-endpoint"
	keyTracingInsecure  = "tracing-insecure"
	keyTracingSampler   = "tracing-sampler"
	keyAzureConnString  = "azure-connection-string"
	keyS3Endpoint       = "s3-endpoint"
	keyS3Region         = "s3-region"
	keyS3PathStyle      = "s3-path-style"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "sweeper",
		Short: "Retention-driven cleanup of CI VMs and build artifacts",
		Long: `Sweeper keeps CI infrastructure tidy. It reads naming patterns and retention
policies from layered YAML configuration and applies them to:
  - Build VMs, grouped by naming pattern (Azure Compute)
  - Build artifact blobs, per container (Azure Blob Storage, S3)

Whether a run deletes anything follows the configuration: VM cleanup uses
vm_cleanup.dry_run and asks for --confirm when require_confirmation is set,
blob cleanup uses safety.dry_run. --dry-run overrides either. Runs are recorded
to a SQLite history and exported as Prometheus metrics when serving.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := cli.ParseFormat(v.GetString(keyOutput))
			return err
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(keyConfigDir, "configs", "configuration directory")
	flags.StringP(keyEnvironment, "e", "", "environment overlay (default $ENVIRONMENT, then development)")
	flags.String(keyConfigRepo, "", "git repository holding the configuration documents")
	flags.String(keyConfigRepoBranch, "", "branch of --config-repo")
	flags.String(keyConfigRepoPath, "", "directory of the documents inside --config-repo")
	flags.String(keyConfigRepoToken, "", "HTTPS token for --config-repo")
	flags.String(keyHistoryDB, "", "SQLite run history path (disabled when empty)")
	flags.String(keyHistoryDriver, "sqlite", "SQLite driver: sqlite (pure Go) or sqlite3 (cgo)")
	flags.String(keyInventory, "", "YAML inventory used instead of cloud APIs")
	flags.String(keyLogLevel, "info", "log level (debug, info, warn, error)")
	flags.String(keyLogFormat, "text", "log format (text, json)")
	flags.StringP(keyOutput, "o", "table", "output format (table, json, yaml, csv)")
	flags.String(keyTracingEndpoint, "", "OTLP/gRPC endpoint; tracing is off when empty")
	flags.Bool(keyTracingInsecure, false, "disable TLS to the tracing endpoint")
	flags.String(keyTracingSampler, "always", "trace sampler: always, never or a ratio such as 0.25")
	flags.String(keyAzureConnString, "", "Azure storage connection string (shared key auth)")
	flags.String(keyS3Endpoint, "", "S3-compatible endpoint for s3 accounts")
	flags.String(keyS3Region, "", "default region for s3 accounts")
	flags.Bool(keyS3PathStyle, false, "use path-style S3 addressing")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("SWEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(keyEnvironment, "SWEEPER_ENVIRONMENT", "ENVIRONMENT")

	cmd.AddCommand(
		newValidateCmd(v),
		newVMCmd(v),
		newBlobCmd(v),
		newFlagCmd(v),
		newHistoryCmd(v),
		newServeCmd(v),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}
