package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configDir   string
	trackingURI string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "evalgate",
		Short: "evalgate - eval trends, regression checks and gated prompt promotion",
		Long: `evalgate reads evaluation-run history from an MLflow tracking server (or an
exported snapshot directory) and turns it into per-eval-type trends.

It flags regressions between runs, gates promotion of a prompt alias on every
eval type's latest complete run, and records an audit trail for every promotion
and rollback.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", ".", "Directory to start searching for .evalgate.yaml")
	cmd.PersistentFlags().StringVar(&opts.trackingURI, "tracking-uri", "", "Tracking server URL or snapshot directory (overrides config)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
		// .env is optional; variables already set in the environment win.
		if err := godotenv.Load(); err == nil {
			slog.Debug("loaded .env")
		}
	}

	cmd.AddCommand(newTrendsCommand(opts))
	cmd.AddCommand(newRegressionsCommand(opts))
	cmd.AddCommand(newPromoteCommand(opts))
	cmd.AddCommand(newRollbackCommand(opts))
	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newAuditCommand(opts))
	cmd.AddCommand(newServeCommand(opts))

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
