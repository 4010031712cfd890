package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"azops-hq/sweeper/pkg/cleanup"
)

func newBlobCmd(v *viper.Viper) *cobra.Command {
	var flags struct {
		dryRun  bool
		account string
	}

	cmd := &cobra.Command{
		Use:   "blob",
		Short: "Inspect and clean up build artifact blobs",
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup <artifact-type>",
		Short: "Apply a blob retention policy to its containers",
		Long: `Evaluate the blob_retention policy of the artifact type in every container it
names. Each container keeps at least safety.minimum_versions_to_keep blobs and
deletes at most safety.max_delete_batch_size per run.

The run is a dry run when safety.dry_run is set unless --dry-run=false is given.

Examples:
  # Preview
  sweeper blob cleanup build_artifacts

  # Delete from a specific storage account
  sweeper blob cleanup build_artifacts --account ciartifacts --dry-run=false`,
		Args: cobra.ExactArgs(1),
	}
	cleanupCmd.Flags().BoolVar(&flags.dryRun, "dry-run", true, "only report what would be deleted")
	cleanupCmd.Flags().StringVar(&flags.account, "account", "", "storage account (default: the policy's account, then the first configured)")
	cleanupCmd.RunE = withApp(v, "blob cleanup", func(ctx context.Context, a *app, args []string) error {
		req := cleanup.BlobCleanupRequest{
			ArtifactType:   args[0],
			StorageAccount: flags.account,
			Trigger:        cleanup.TriggerCLI,
		}
		if cleanupCmd.Flags().Changed("dry-run") {
			req.DryRun = &flags.dryRun
		}
		result, err := a.blobCleaner().Run(ctx, req)
		if err != nil {
			return err
		}
		return a.render(blobCleanupView{result})
	})

	usageCmd := &cobra.Command{
		Use:   "usage <artifact-type>",
		Short: "Report blob counts and sizes per container",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(v, "blob usage", func(ctx context.Context, a *app, args []string) error {
			report, err := a.blobCleaner().Usage(ctx, args[0])
			if err != nil {
				return err
			}
			return a.render(usageView{report})
		}),
	}

	policiesCmd := &cobra.Command{
		Use:   "policies",
		Short: "List the blob retention policies",
		Args:  cobra.NoArgs,
		RunE: withApp(v, "blob policies", func(_ context.Context, a *app, _ []string) error {
			policies, err := a.blobCleaner().RetentionPolicies()
			if err != nil {
				return err
			}
			return a.render(newPoliciesView(policies))
		}),
	}

	cmd.AddCommand(cleanupCmd, usageCmd, policiesCmd)
	return cmd
}
