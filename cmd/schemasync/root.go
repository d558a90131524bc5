package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"schemasync/internal/config"
	"schemasync/internal/logging"
	_ "schemasync/internal/provider/mysql"
	_ "schemasync/internal/provider/postgres"
	_ "schemasync/internal/provider/sqlite"
	"schemasync/internal/runner"
	"schemasync/internal/state"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "schemasync",
		Short: "Keep databases in line with declarative JSON, TOML or YAML schemas",
		Long: `schemasync reads declarative schema sources and reconciles live databases
against them. It only ever creates tables, columns and indexes, alters columns
and replaces changed indexes; it never drops tables or columns.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(checkCmd(opts))
	rootCmd.AddCommand(planCmd(opts))
	rootCmd.AddCommand(validateCmd(opts))
	rootCmd.AddCommand(watchCmd(opts))

	return rootCmd
}

// load reads the configuration and builds the logger. The configuration file
// is only required when it was named explicitly.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	required := cmd.Flags().Changed("config")
	cfg, err := config.Load(o.configPath, required)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	logger, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (o *rootOptions) newRunner(cmd *cobra.Command, dryRun bool) (*runner.Runner, *config.Config, error) {
	cfg, logger, err := o.load(cmd)
	if err != nil {
		return nil, nil, err
	}
	r := runner.New(cfg, state.NewFileStore(cfg.StateFile), runner.Options{
		DryRun: dryRun,
		Out:    cmd.OutOrStdout(),
		Logger: logger,
	})
	return r, cfg, nil
}

// targetsFor returns the schemas named on the command line, all bound to
// connection, or the configured schemas when none were named.
func targetsFor(cfg *config.Config, args []string, connection string) []runner.Target {
	if len(args) == 0 {
		return runner.TargetsFromConfig(cfg)
	}
	targets := make([]runner.Target, 0, len(args))
	for _, a := range args {
		targets = append(targets, runner.Target{Source: a, Connection: connection})
	}
	return targets
}
