package cli

import (
	"github.com/spf13/cobra"

	"bulwark/internal/admission"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Current int64
	Limit   int64
	Extra   int64
	Big     bool
}

// CheckResult holds the admission decision.
type CheckResult struct {
	Admitted bool   `json:"admitted"`
	Current  int64  `json:"current"`
	Limit    int64  `json:"limit"`
	Extra    int64  `json:"extra"`
	Checker  string `json:"checker"` // "fast" or "big"
	Reason   string `json:"reason,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the overflow-safe admission check",
		Long: `Decide whether adding an increment to a running total stays within a limit.

The check never computes current+extra directly, so it gives the right
answer even for increments near the top of the int64 range where the naive
comparison would wrap around and admit everything.

Exit codes: 0 admitted, 1 rejected, 2 invalid usage.

Examples:
  bulwark check --current 90 --limit 100 --extra 10
  bulwark check --current 1 --limit 9223372036854775807 --extra 9223372036854775807
  bulwark check --current 90 --limit 100 --extra 10 --big --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Current, "current", 0, "running total")
	cmd.Flags().Int64Var(&opts.Limit, "limit", 0, "ceiling (required)")
	_ = cmd.MarkFlagRequired("limit")
	cmd.Flags().Int64Var(&opts.Extra, "extra", 0, "proposed increment")
	cmd.Flags().BoolVar(&opts.Big, "big", false, "use the arbitrary-precision checker")

	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	check := admission.Admit
	checker := "fast"
	if opts.Big {
		check = admission.AdmitBig
		checker = "big"
	}

	result := CheckResult{
		Current: opts.Current,
		Limit:   opts.Limit,
		Extra:   opts.Extra,
		Checker: checker,
	}

	err := check(opts.Current, opts.Limit, opts.Extra)
	result.Admitted = err == nil
	if err != nil {
		result.Reason = err.Error()
	}

	if formatter.Format == "json" {
		if jerr := formatter.JSON(result); jerr != nil {
			return WrapExitError(ExitCommandError, "encoding output", jerr)
		}
	} else if result.Admitted {
		formatter.Textf("admitted: %d + %d within limit %d", result.Current, result.Extra, result.Limit)
	} else {
		formatter.Textf("rejected: %s", result.Reason)
	}

	if !result.Admitted {
		return NewExitError(ExitFailure, "admission rejected")
	}
	return nil
}
