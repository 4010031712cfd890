package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newFlagCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "flag <name>",
		Short: "Show whether a feature flag is enabled in the current environment",
		Long: `Look up feature_flags.<environment>.<name> in the environments document.
Missing flags and non-boolean values read as disabled.

Examples:
  sweeper flag scheduled_vm_cleanup --environment production`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(v, "flag", func(_ context.Context, a *app, args []string) error {
			return a.render(flagView{
				Name:        args[0],
				Environment: a.store.Environment(),
				Enabled:     a.store.FeatureFlag(args[0]),
			})
		}),
	}
}
