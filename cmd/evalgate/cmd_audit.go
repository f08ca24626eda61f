package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/spboyer/evalgate/internal/audit"
	"github.com/spboyer/evalgate/internal/models"
)

func newAuditCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the promotion and rollback audit trail",
	}
	cmd.AddCommand(newAuditListCommand(root))
	return cmd
}

func newAuditListCommand(root *rootOptions) *cobra.Command {
	var (
		promptName string
		runID      string
		limit      int
		format     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit records, oldest first",
		Long: `List audit records from the local journal (audit.journal in .evalgate.yaml).

With --run-id the records are read from that run's tags on the tracking server
instead, which works without a journal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			a, err := root.newApp()
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			ctx := cmd.Context()
			var records []models.AuditRecord
			switch {
			case runID != "":
				records, err = audit.RecordsForRun(ctx, a.store, runID)
				if err == nil && promptName != "" {
					records = filterByPrompt(records, promptName)
				}
			case a.journal != nil:
				records, err = a.journal.List(ctx, promptName, limit)
			default:
				return errors.New("no audit journal configured: set audit.journal or pass --run-id")
			}
			if err != nil {
				return err
			}
			if records == nil {
				records = []models.AuditRecord{}
			}

			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			printAuditRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().StringVar(&promptName, "prompt", "", "Only records for this prompt")
	cmd.Flags().StringVar(&runID, "run-id", "", "Read records from this run's tags")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum records to return from the journal (0 for all)")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	return cmd
}

func filterByPrompt(records []models.AuditRecord, promptName string) []models.AuditRecord {
	out := records[:0]
	for _, r := range records {
		if r.PromptName == promptName {
			out = append(out, r)
		}
	}
	return out
}
