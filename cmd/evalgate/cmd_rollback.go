package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRollbackCommand(root *rootOptions) *cobra.Command {
	var (
		alias     string
		toVersion int
		reason    string
		actor     string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "rollback <prompt>",
		Short: "Point an alias back at a previous prompt version",
		Long: `Move an alias back to an earlier prompt version.

Without --to-version the previous version is taken from the newest run history
that recorded a different version of the prompt, falling back to the current
version minus one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			promptName := args[0]

			a, err := root.newApp()
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			ctx := cmd.Context()
			target := toVersion
			if target <= 0 {
				v, ok := a.gate.FindPreviousVersion(ctx, promptName, alias)
				if !ok {
					return fmt.Errorf("no previous version of %s@%s to roll back to", promptName, alias)
				}
				target = v
			}

			rec, err := a.gate.ExecuteRollback(ctx, promptName, alias, target, reason, resolveActor(actor, a.cfg))
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			printAuditRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	cmd.Flags().StringVar(&alias, "alias", defaultToAlias, "Alias to roll back")
	cmd.Flags().IntVar(&toVersion, "to-version", 0, "Version to roll back to (default: detected previous version)")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the audit trail")
	cmd.Flags().StringVar(&actor, "actor", "", "Actor recorded in the audit trail (default: audit.actor or the OS user)")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	return cmd
}
