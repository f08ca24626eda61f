package main

import (
	"github.com/spf13/cobra"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var evalType, format string

	cmd := &cobra.Command{
		Use:   "run <run-id>",
		Short: "Show the reconstructed cases of one evaluation run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			a, err := root.newApp()
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			detail, err := a.recon.GetRunDetail(cmd.Context(), args[0], evalType)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), detail)
			}
			printRunDetail(cmd.OutOrStdout(), detail)
			return nil
		},
	}

	cmd.Flags().StringVar(&evalType, "eval-type", "", "Eval type of the run (default: inferred from its experiment)")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	return cmd
}
