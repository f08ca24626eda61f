package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/promotion"
	"github.com/spboyer/evalgate/internal/spinner"
	"github.com/spboyer/evalgate/internal/webapi"
)

const (
	defaultFromAlias = webapi.DefaultFromAlias
	defaultToAlias   = webapi.DefaultToAlias
)

type promoteOptions struct {
	fromAlias string
	toAlias   string
	version   int
	force     bool
	yes       bool
	dryRun    bool
	reason    string
	actor     string
	format    string
}

// promoteOutput is the JSON shape printed by promote.
type promoteOutput struct {
	Gate     models.PromotionResult `json:"gate"`
	Executed bool                   `json:"executed"`
	Audit    *models.AuditRecord    `json:"audit,omitempty"`
}

func newPromoteCommand(root *rootOptions) *cobra.Command {
	opts := &promoteOptions{}

	cmd := &cobra.Command{
		Use:   "promote <prompt>",
		Short: "Gate and promote a prompt version to an alias",
		Long: `Check every eval type's latest complete run against its threshold and, when
all of them pass, move the target alias to the prompt version.

The version defaults to the one behind --from. A blocked promotion exits with
code 1 unless --force is given; forcing requires confirmation (or --yes) and is
recorded in the audit trail together with the failing eval types.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPromote(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.fromAlias, "from", defaultFromAlias, "Alias holding the candidate version")
	cmd.Flags().StringVar(&opts.toAlias, "to", defaultToAlias, "Alias to move")
	cmd.Flags().IntVar(&opts.version, "version", 0, "Version to promote (default: the version behind --from)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Promote even when the gate blocks")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Skip the confirmation prompt for --force")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Only evaluate the gate")
	cmd.Flags().StringVar(&opts.reason, "reason", "", "Reason recorded in the audit trail")
	cmd.Flags().StringVar(&opts.actor, "actor", "", "Actor recorded in the audit trail (default: audit.actor or the OS user)")
	cmd.Flags().StringVar(&opts.format, "format", formatTable, "Output format: table or json")

	return cmd
}

func runPromote(cmd *cobra.Command, root *rootOptions, opts *promoteOptions, promptName string) error {
	if err := validateFormat(opts.format); err != nil {
		return err
	}
	if opts.version < 0 {
		return fmt.Errorf("--version must be positive, got %d", opts.version)
	}

	a, err := root.newApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	stop := spinner.Start(cmd.ErrOrStderr(), "Evaluating promotion gate")
	result, err := a.gate.CheckPromotionGate(ctx, promptName, opts.fromAlias, opts.toAlias, opts.version)
	stop()
	if err != nil {
		return err
	}
	output := promoteOutput{Gate: result}

	report := func() error {
		if opts.format == formatJSON {
			return writeJSON(out, output)
		}
		printPromotion(out, result)
		if output.Audit != nil {
			fmt.Fprintln(out)
			printAuditRecord(out, *output.Audit)
		}
		return nil
	}
	blocked := func() error {
		return &GateBlockedError{PromptName: promptName, Blocking: blockingChecks(result)}
	}

	if opts.dryRun {
		if err := report(); err != nil {
			return err
		}
		if !result.Allowed {
			return blocked()
		}
		return nil
	}

	if !result.Allowed {
		if !opts.force {
			if err := report(); err != nil {
				return err
			}
			return blocked()
		}
		if !opts.yes {
			question := fmt.Sprintf("Gate blocked by %v. Force %s v%d to %s?", result.BlockingEvals, promptName, result.Version, opts.toAlias)
			ok, err := promptConfirm(cmd.InOrStdin(), cmd.ErrOrStderr(), question)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("forced promotion not confirmed (use --yes to skip the prompt)")
			}
		}
	}

	req := promotion.RequestFromResult(result, resolveActor(opts.actor, a.cfg))
	req.Force = opts.force
	req.Reason = opts.reason
	rec, err := a.gate.ExecutePromotion(ctx, req)
	if err != nil {
		return err
	}
	output.Executed = true
	output.Audit = &rec
	return report()
}

func blockingChecks(result models.PromotionResult) []models.PromotionEvalCheck {
	var out []models.PromotionEvalCheck
	for _, c := range result.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}
