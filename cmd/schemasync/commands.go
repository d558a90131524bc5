package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"schemasync/internal/output"
	"schemasync/internal/runner"
)

var errNoSchemas = errors.New("no schemas configured; add [[schemas]] to the configuration or name schema files")

func checkCmd(opts *rootOptions) *cobra.Command {
	var force, dryRun bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Reconcile every configured schema when any of them changed",
		Long: `Check compares the modification times of the configured schema sources with
the ones saved by the last successful run. When any source changed, every
schema is compiled and reconciled against its connection and the resulting DDL
is executed. The new times are saved only when every schema succeeded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, cfg, err := opts.newRunner(cmd, dryRun)
			if err != nil {
				return err
			}
			targets := runner.TargetsFromConfig(cfg)
			if len(targets) == 0 {
				return errNoSchemas
			}

			report, err := r.CheckAll(cmd.Context(), targets, force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case !report.Checked:
				fmt.Fprintln(out, "Schemas unchanged since the last run.")
			case dryRun:
				fmt.Fprintln(out, "Dry run complete; nothing was executed.")
			default:
				fmt.Fprintf(out, "Checked %d schemas, applied %d statements.\n", len(report.Migrations), report.Applied)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Check every schema even if no source changed")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the statements instead of executing them")
	return cmd
}

func planCmd(opts *rootOptions) *cobra.Command {
	var connection, format string

	cmd := &cobra.Command{
		Use:   "plan [schema...]",
		Short: "Show the DDL needed to bring databases in line with schemas",
		Long: `Plan reconciles the named schema files, or every configured schema when none
are named, and prints the statements that check would execute. Nothing is
executed and no state is saved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			r, cfg, err := opts.newRunner(cmd, true)
			if err != nil {
				return err
			}
			targets := targetsFor(cfg, args, connection)
			if len(targets) == 0 {
				return errNoSchemas
			}

			migrations, err := r.Plan(cmd.Context(), targets)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), formatter, migrations)
		},
	}

	cmd.Flags().StringVar(&connection, "connection", "", "Connection the named schemas belong to (default connection if empty)")
	cmd.Flags().StringVarP(&format, "format", "o", "sql", "Output format: sql, json or summary")
	return cmd
}

func validateCmd(opts *rootOptions) *cobra.Command {
	var connection string

	cmd := &cobra.Command{
		Use:   "validate [schema...]",
		Short: "Parse and resolve schemas without contacting a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			targets := targetsFor(cfg, args, connection)
			if len(targets) == 0 {
				return errNoSchemas
			}

			schemas, err := runner.Compile(targets)
			for i, s := range schemas {
				if s == nil {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK %s: schema %s, %d tables\n", targets[i].Source, s.Name, len(s.Entities))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&connection, "connection", "", "Connection the named schemas belong to (default connection if empty)")
	return cmd
}

func watchCmd(opts *rootOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run check whenever a configured schema source changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, cfg, err := opts.newRunner(cmd, false)
			if err != nil {
				return err
			}
			targets := runner.TargetsFromConfig(cfg)
			if len(targets) == 0 {
				return errNoSchemas
			}
			return r.Watch(cmd.Context(), targets, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", runner.DefaultDebounce, "Quiet period after a change before checking")
	return cmd
}
