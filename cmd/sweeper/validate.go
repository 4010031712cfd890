package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"azops-hq/sweeper/pkg/cli"
	"azops-hq/sweeper/pkg/config"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [document...]",
		Short: "Validate configuration documents",
		Long: `Load each configuration document with the environment overlay applied and
check its required structure. Without arguments every document is validated.

Examples:
  # Validate everything
  sweeper validate

  # Validate the VM policy as production sees it
  sweeper validate azure_resources --environment production`,
		RunE: withApp(v, "validate", runValidate),
	}
}

func runValidate(_ context.Context, a *app, args []string) error {
	names := args
	if len(names) == 0 {
		names = config.Documents
	}
	for _, name := range names {
		if !slices.Contains(config.Documents, name) {
			return cli.NewUsageError("", fmt.Sprintf("unknown document %q (want one of %v)", name, config.Documents))
		}
	}

	var (
		view validateView
		errs []error
	)
	for _, name := range names {
		row := validateRow{Document: name, Valid: true}
		if err := a.store.Validate(name); err != nil {
			row.Valid = false
			row.Error = err.Error()
			errs = append(errs, err)
		}
		view = append(view, row)
	}

	if err := a.render(view); err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d documents invalid: %w", len(errs), len(names), errors.Join(errs...))
	}
	return nil
}
