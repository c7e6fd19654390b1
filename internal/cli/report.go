package cli

import (
	"context"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"bulwark/internal/journal"
	"bulwark/internal/scoped"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	JournalPath string
	Guard       string
	Limit       int
}

// ReportResult holds the report payload.
type ReportResult struct {
	Violations []journal.Violation `json:"violations"`
	Counts     map[string]int64    `json:"counts"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "List recorded guard violations",
		Long: `Read the violation journal and show what has been hitting the limits.

Violations are listed newest-first by logical sequence number, with
per-guard totals at the end.

Examples:
  bulwark report --journal violations.db
  bulwark report --journal violations.db --guard inflate -n 10
  bulwark report --journal violations.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.JournalPath, "journal", "", "SQLite journal path (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.Guard, "guard", "", "only show violations from this guard")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 50, "maximum rows to show")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) (err error) {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	j, jerr := journal.Open(opts.JournalPath)
	if jerr != nil {
		_ = formatter.Error(ErrCodeJournal, jerr.Error(), nil)
		return WrapExitError(ExitCommandError, "opening journal", jerr)
	}
	defer scoped.KeepFirst(&err, "close journal", j.Close)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	violations, verr := j.ListViolations(ctx, opts.Guard, opts.Limit)
	if verr != nil {
		_ = formatter.Error(ErrCodeJournal, verr.Error(), nil)
		return WrapExitError(ExitCommandError, "reading journal", verr)
	}

	counts, cerr := j.CountByGuard(ctx)
	if cerr != nil {
		_ = formatter.Error(ErrCodeJournal, cerr.Error(), nil)
		return WrapExitError(ExitCommandError, "reading journal", cerr)
	}

	result := ReportResult{Violations: violations, Counts: counts}
	if formatter.Format == "json" {
		if jerr := formatter.JSON(result); jerr != nil {
			return WrapExitError(ExitCommandError, "encoding output", jerr)
		}
		return nil
	}

	if len(result.Violations) == 0 {
		formatter.Textf("no violations recorded")
		return nil
	}

	for _, v := range result.Violations {
		formatter.Textf("#%d %s %s/%s %s", v.Seq, v.At.UTC().Format(time.RFC3339), v.Guard, v.Resource, v.Message)
		if v.Source != "" {
			formatter.Textf("    source: %s", v.Source)
		}
	}
	formatter.Textf("totals:")
	for _, guard := range sortedKeys(result.Counts) {
		formatter.Textf("  %-10s %d", guard, result.Counts[guard])
	}
	return nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
