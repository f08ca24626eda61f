package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/statistics"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

var printer = message.NewPrinter(language.English)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported format %q (want %s or %s)", format, formatTable, formatJSON)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatPct renders a [0,1] rate as a percentage with one decimal.
func formatPct(rate float64) string {
	return printer.Sprintf("%.1f%%", rate*100)
}

// formatPP renders a signed percentage-point delta.
func formatPP(delta float64) string {
	return printer.Sprintf("%+.1fpp", delta)
}

func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// padRight pads s with spaces to the given display width.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// truncateName shortens name to maxLen display columns, marking the cut with "…".
func truncateName(name string, maxLen int) string {
	if runewidth.StringWidth(name) <= maxLen {
		return name
	}
	return runewidth.Truncate(name, maxLen, "…")
}

// writeTable prints rows under headers with columns sized to the widest cell.
func writeTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if i == len(cells)-1 {
				parts[i] = cell
				continue
			}
			parts[i] = padRight(cell, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(headers)
	sep := make([]string, len(headers))
	for i := range headers {
		sep[i] = strings.Repeat("─", widths[i])
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
}

func verdictIcon(v models.Verdict) string {
	switch v {
	case models.VerdictRegression:
		return "✗"
	case models.VerdictWarning:
		return "⚠"
	case models.VerdictImproved:
		return "↑"
	default:
		return "✓"
	}
}

func directionIcon(d models.TrendDirection) string {
	switch d {
	case models.TrendImproving:
		return "↑"
	case models.TrendDegrading:
		return "↓"
	default:
		return "→"
	}
}

func printTrends(w io.Writer, summaries []models.TrendSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No evaluation runs found.")
		return
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rates := make([]float64, 0, len(s.Points))
		for _, p := range s.Points {
			rates = append(rates, p.PassRate)
		}
		latest, avg := "-", "-"
		if p, ok := s.Latest(); ok {
			latest = formatPct(p.PassRate)
			avg = formatPct(statistics.Mean(rates))
		}
		rows = append(rows, []string{
			s.EvalType,
			formatCount(len(s.Points)),
			latest,
			avg,
			directionIcon(s.TrendDirection) + " " + string(s.TrendDirection),
			formatCount(len(s.PromptChanges)),
		})
	}
	writeTable(w, []string{"EVAL TYPE", "RUNS", "LATEST", "MEAN", "TREND", "PROMPT CHANGES"}, rows)

	for _, s := range summaries {
		for _, c := range s.PromptChanges {
			fmt.Fprintf(w, "  %s: %s %s → %s (run %s)\n", s.EvalType, c.PromptName, c.FromVersion, c.ToVersion, truncateName(c.RunID, 12))
		}
	}
}

func printRegressions(w io.Writer, check models.RegressionCheck) {
	if len(check.Reports) == 0 && len(check.InsufficientData) == 0 {
		fmt.Fprintln(w, "No eval types to check.")
		return
	}

	if len(check.Reports) > 0 {
		rows := make([][]string, 0, len(check.Reports))
		for _, r := range check.Reports {
			rows = append(rows, []string{
				r.EvalType,
				formatPct(r.BaselinePassRate),
				formatPct(r.CurrentPassRate),
				formatPP(r.DeltaPP),
				formatPct(r.Threshold),
				verdictIcon(r.Verdict) + " " + string(r.Verdict),
			})
		}
		writeTable(w, []string{"EVAL TYPE", "BASELINE", "CURRENT", "DELTA", "THRESHOLD", "VERDICT"}, rows)

		for _, r := range check.Reports {
			for _, c := range r.ChangedPrompts {
				fmt.Fprintf(w, "  %s: %s changed %s → %s\n", r.EvalType, c.PromptName, c.FromVersion, c.ToVersion)
			}
		}
	}

	if len(check.InsufficientData) > 0 {
		fmt.Fprintf(w, "\nInsufficient data (fewer than 2 complete runs): %s\n", strings.Join(check.InsufficientData, ", "))
	}
}

func printPromotion(w io.Writer, result models.PromotionResult) {
	fmt.Fprintf(w, "%s v%d: %s → %s\n\n", result.PromptName, result.Version, result.FromAlias, result.ToAlias)

	rows := make([][]string, 0, len(result.Checks))
	for _, c := range result.Checks {
		status := "✓ pass"
		if !c.Passed {
			status = "✗ blocked"
		}
		rows = append(rows, []string{c.EvalType, formatPct(c.PassRate), formatPct(c.Threshold), status, truncateName(c.RunID, 12)})
	}
	writeTable(w, []string{"EVAL TYPE", "PASS RATE", "THRESHOLD", "STATUS", "RUN"}, rows)

	fmt.Fprintln(w)
	if result.Allowed {
		fmt.Fprintln(w, "Gate: ALLOWED")
	} else {
		fmt.Fprintf(w, "Gate: BLOCKED by %s\n", strings.Join(result.BlockingEvals, ", "))
	}
}

func printAuditRecord(w io.Writer, rec models.AuditRecord) {
	fmt.Fprintf(w, "Audit %s: %s %s@%s v%d → v%d by %s\n",
		rec.ID, rec.Action, rec.PromptName, rec.Alias, rec.FromVersion, rec.ToVersion, rec.Actor)
	if rec.Reason != "" {
		fmt.Fprintf(w, "  reason: %s\n", rec.Reason)
	}
}

func printAuditRecords(w io.Writer, records []models.AuditRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No audit records.")
		return
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			string(r.Action),
			r.PromptName,
			r.Alias,
			fmt.Sprintf("v%d → v%d", r.FromVersion, r.ToVersion),
			r.Actor,
			truncateName(r.Reason, 48),
		})
	}
	writeTable(w, []string{"TIME", "ACTION", "PROMPT", "ALIAS", "VERSION", "ACTOR", "REASON"}, rows)
}

func printRunDetail(w io.Writer, d *models.RunDetail) {
	fmt.Fprintf(w, "Run %s (%s)\n", d.RunID, d.EvalType)
	if len(d.Cases) == 0 {
		fmt.Fprintln(w, "No cases recorded.")
		return
	}

	rows := make([][]string, 0, len(d.Cases))
	for _, c := range d.Cases {
		result := "-"
		if c.Passed != nil {
			result = "✗"
			if *c.Passed {
				result = "✓"
			}
		}
		rating := c.Rating
		if rating == "" && c.Score != nil {
			rating = printer.Sprintf("%.2f", *c.Score)
		}
		rows = append(rows, []string{
			truncateName(c.CaseID, 14),
			formatCount(c.Turns),
			result,
			rating,
			truncateName(c.Input, 40),
			truncateName(c.Response, 40),
		})
	}
	fmt.Fprintln(w)
	writeTable(w, []string{"CASE", "TURNS", "PASS", "RATING", "INPUT", "RESPONSE"}, rows)

	passed, assessed := d.PassCount()
	fmt.Fprintf(w, "\n%s/%s assessed cases passed\n", formatCount(passed), formatCount(assessed))
}
