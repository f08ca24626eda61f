package main

import (
	"github.com/spf13/cobra"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/spinner"
)

func newRegressionsCommand(root *rootOptions) *cobra.Command {
	var flags selectionFlags
	var runID string

	cmd := &cobra.Command{
		Use:   "regressions",
		Short: "Compare the latest run of each eval type against its baseline",
		Long: `Compare each eval type's current run against the previous complete run.

By default the newest complete run is the current run. Use --run-id to check a
specific run instead; eval types that do not contain that run are skipped.

Exits with code 1 when any eval type has a REGRESSION verdict.`,
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

			stop := spinner.Start(cmd.ErrOrStderr(), "Checking regressions")
			check := a.detector.CheckAllRegressions(cmd.Context(), evalTypes, runID, limit)
			stop()
			if flags.format == formatJSON {
				if err := writeJSON(cmd.OutOrStdout(), check); err != nil {
					return err
				}
			} else {
				printRegressions(cmd.OutOrStdout(), check)
			}

			if check.HasRegression() {
				var regressed []string
				for _, r := range check.Reports {
					if r.Verdict == models.VerdictRegression {
						regressed = append(regressed, r.EvalType)
					}
				}
				return &RegressionError{EvalTypes: regressed}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&runID, "run-id", "", "Run to treat as current (default: newest complete run)")
	return cmd
}
