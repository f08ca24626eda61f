package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spboyer/evalgate/internal/models"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // All checks passed
	ExitCheckFailed = 1 // A regression was found or a promotion was blocked
	ExitError       = 2 // Configuration or runtime error
)

// GateBlockedError indicates that the promotion gate ran successfully but one
// or more eval types are below their threshold.
type GateBlockedError struct {
	PromptName string
	Blocking   []models.PromotionEvalCheck
}

func (e *GateBlockedError) Error() string {
	parts := make([]string, 0, len(e.Blocking))
	for _, c := range e.Blocking {
		parts = append(parts, fmt.Sprintf("%s %s < %s", c.EvalType, formatPct(c.PassRate), formatPct(c.Threshold)))
	}
	return fmt.Sprintf("promotion of %s blocked: %s", e.PromptName, strings.Join(parts, ", "))
}

// RegressionError indicates that at least one eval type regressed.
type RegressionError struct {
	EvalTypes []string
}

func (e *RegressionError) Error() string {
	return "regression detected in " + strings.Join(e.EvalTypes, ", ")
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var gateErr *GateBlockedError
	var regErr *RegressionError
	if errors.As(err, &gateErr) || errors.As(err, &regErr) {
		return ExitCheckFailed
	}
	return ExitError
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
