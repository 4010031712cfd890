package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"azops-hq/sweeper/pkg/cleanup/history"
	"azops-hq/sweeper/pkg/cli"
)

func newHistoryCmd(v *viper.Viper) *cobra.Command {
	var flags struct {
		domain    string
		target    string
		since     time.Duration
		limit     int
		olderThan time.Duration
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded cleanup runs",
		Long: `List cleanup runs recorded in the history database, newest first.

Examples:
  # Last 50 runs
  sweeper history --history-db ./history.db

  # VM runs of the last day
  sweeper history --domain vm --since 24h

  # Inspect one run
  sweeper history show 1f0c6a52-...`,
		Args: cobra.NoArgs,
		RunE: withApp(v, "history", func(ctx context.Context, a *app, _ []string) error {
			if err := a.requireHistory(); err != nil {
				return err
			}
			q := history.Query{Domain: flags.domain, Target: flags.target, Limit: flags.limit}
			if flags.since > 0 {
				q.Since = time.Now().Add(-flags.since)
			}
			runs, err := a.history.List(ctx, q)
			if err != nil {
				return err
			}
			return a.render(historyView(runs))
		}),
	}
	cmd.Flags().StringVar(&flags.domain, "domain", "", "filter by domain (vm, blob)")
	cmd.Flags().StringVar(&flags.target, "target", "", "filter by pattern type or artifact type")
	cmd.Flags().DurationVar(&flags.since, "since", 0, "only runs started within this duration")
	cmd.Flags().IntVar(&flags.limit, "limit", history.DefaultListLimit, "maximum number of runs")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(v, "history show", func(ctx context.Context, a *app, args []string) error {
			if err := a.requireHistory(); err != nil {
				return err
			}
			run, err := a.history.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return a.render(runView{run})
		}),
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete recorded runs older than --older-than",
		Args:  cobra.NoArgs,
		RunE: withApp(v, "history prune", func(ctx context.Context, a *app, _ []string) error {
			if err := a.requireHistory(); err != nil {
				return err
			}
			if flags.olderThan <= 0 {
				return cli.NewUsageError("older-than", "must be positive")
			}
			n, err := a.history.Prune(ctx, time.Now().Add(-flags.olderThan))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "pruned %d runs\n", n)
			return err
		}),
	}
	pruneCmd.Flags().DurationVar(&flags.olderThan, "older-than", 90*24*time.Hour, "age of the runs to delete")

	cmd.AddCommand(showCmd, pruneCmd)
	return cmd
}
