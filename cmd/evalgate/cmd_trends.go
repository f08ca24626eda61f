package main

import (
	"github.com/spf13/cobra"

	"github.com/spboyer/evalgate/internal/spinner"
)

// selectionFlags are the eval-type filters shared by trends and regressions.
type selectionFlags struct {
	evalTypes []string
	suite     string
	limit     int
	format    string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.evalTypes, "eval-type", nil, "Eval types to include (repeatable; overrides --suite)")
	cmd.Flags().StringVar(&f.suite, "suite", "", "Named suite to include: core or full")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Runs per eval type (default: trend_limit from config)")
	cmd.Flags().StringVar(&f.format, "format", formatTable, "Output format: table or json")
}

func (f *selectionFlags) resolve(a *app) ([]string, int, error) {
	if err := validateFormat(f.format); err != nil {
		return nil, 0, err
	}
	evalTypes, err := resolveEvalTypes(a.cfg, f.evalTypes, f.suite)
	if err != nil {
		return nil, 0, err
	}
	limit := f.limit
	if limit <= 0 {
		limit = a.cfg.TrendLimit
	}
	return evalTypes, limit, nil
}

func newTrendsCommand(root *rootOptions) *cobra.Command {
	var flags selectionFlags

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Show pass-rate trends per eval type",
		Long: `Show the pass-rate history of every eval type, oldest run first.

Each row reports the latest and mean pass rate, the recent direction, and how
many prompt version changes occurred within the window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.newApp()
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			evalTypes, limit, err := flags.resolve(a)
			if err != nil {
				return err
			}

			stop := spinner.Start(cmd.ErrOrStderr(), "Loading trends")
			summaries := a.agg.Summaries(cmd.Context(), evalTypes, limit)
			stop()
			if flags.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			printTrends(cmd.OutOrStdout(), summaries)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
