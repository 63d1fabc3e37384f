package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/courtside/internal/engine"
)

// ErrCodeViolations marks a failed state audit.
const ErrCodeViolations = "VIOLATIONS"

// CheckResult is the payload of the check command.
type CheckResult struct {
	Consistent bool               `json:"consistent"`
	Violations []engine.Violation `json:"violations"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Audit the database for consistency violations",
		Long: `Scan every card, user and trade and report broken consistency rules:
ownership flags, hand sizes, offers not held, overlapping offers and
pending trade references.

Exit codes:
  0 - State is consistent
  1 - Violations found
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				violations, err := s.engine.CheckInvariants(s.ctx)
				if err != nil {
					return s.out.Fail(err)
				}
				return outputCheck(s.out, CheckResult{Consistent: len(violations) == 0, Violations: violations})
			})
		},
	}
}

func outputCheck(f *OutputFormatter, result CheckResult) error {
	if f.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Consistent {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeViolations,
				Message: fmt.Sprintf("%d violation(s) found", len(result.Violations)),
			}
		}
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		if result.Consistent {
			fmt.Fprintln(f.Writer, "✓ State is consistent")
		} else {
			fmt.Fprintf(f.Writer, "✗ %d violation(s) found\n", len(result.Violations))
			for _, v := range result.Violations {
				fmt.Fprintf(f.Writer, "  %s\n", v)
			}
		}
	}

	if !result.Consistent {
		return NewExitError(ExitFailure, fmt.Sprintf("%d violation(s) found", len(result.Violations)))
	}
	return nil
}
