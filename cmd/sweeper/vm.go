package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"azops-hq/sweeper/pkg/cleanup"
)

func newVMCmd(v *viper.Viper) *cobra.Command {
	var flags struct {
		dryRun  bool
		confirm bool
	}

	cmd := &cobra.Command{
		Use:   "vm",
		Short: "Inspect and clean up build VMs by naming pattern",
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup <pattern-type>",
		Short: "Apply the VM retention policy to one naming pattern",
		Long: `Group the VMs matching the naming pattern, keep the newest keep_latest_count
and everything younger than age_threshold_days, and delete the rest.

The run is a dry run when vm_cleanup.dry_run is set unless --dry-run=false is
given. When vm_cleanup.require_confirmation is set, a live run only lists the
VMs it would delete until it is repeated with --confirm.

Examples:
  # Preview
  sweeper vm cleanup ci_templates --dry-run

  # Delete after reviewing the preview
  sweeper vm cleanup ci_templates --dry-run=false --confirm`,
		Args: cobra.ExactArgs(1),
	}
	cleanupCmd.Flags().BoolVar(&flags.dryRun, "dry-run", true, "only report what would be deleted")
	cleanupCmd.Flags().BoolVar(&flags.confirm, "confirm", false, "confirm deletion when the policy requires it")
	cleanupCmd.RunE = withApp(v, "vm cleanup", func(ctx context.Context, a *app, args []string) error {
		c, err := a.vmCleaner()
		if err != nil {
			return err
		}
		req := cleanup.VMCleanupRequest{
			PatternType: args[0],
			Confirmed:   flags.confirm,
			Trigger:     cleanup.TriggerCLI,
		}
		if cleanupCmd.Flags().Changed("dry-run") {
			req.DryRun = &flags.dryRun
		}
		result, err := c.Run(ctx, req)
		if err != nil {
			return err
		}
		return a.render(vmCleanupView{result})
	})

	listCmd := &cobra.Command{
		Use:   "list <pattern-type>",
		Short: "List the VMs matching a naming pattern, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(v, "vm list", func(ctx context.Context, a *app, args []string) error {
			c, err := a.vmCleaner()
			if err != nil {
				return err
			}
			vms, err := c.ListByPattern(ctx, args[0])
			if err != nil {
				return err
			}
			return a.render(newVMListView(vms, a.registry, args[0]))
		}),
	}

	checkCmd := &cobra.Command{
		Use:   "check <vm-name>",
		Short: "Report which naming patterns a VM name complies with",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(v, "vm check", func(_ context.Context, a *app, args []string) error {
			return a.render(complianceView{a.registry.Compliance(args[0])})
		}),
	}

	patternsCmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the declared VM naming patterns",
		Args:  cobra.NoArgs,
		RunE: withApp(v, "vm patterns", func(_ context.Context, a *app, _ []string) error {
			patterns, err := a.store.NamingPatterns()
			if err != nil {
				return err
			}
			return a.render(newPatternsView(patterns))
		}),
	}

	cmd.AddCommand(cleanupCmd, listCmd, checkCmd, patternsCmd)
	return cmd
}
