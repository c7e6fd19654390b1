package cli

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bulwark/internal/admission"
	"bulwark/internal/ingest"
	"bulwark/internal/journal"
	"bulwark/internal/policy"
	"bulwark/internal/scoped"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	PolicyPath  string
	JournalPath string
}

// ScanResult describes what the guards observed for one input.
type ScanResult struct {
	Source    string `json:"source"`
	Kind      string `json:"kind"` // "gzip", "xml", or "raw"
	BytesIn   int64  `json:"bytes_in"`
	BytesOut  int64  `json:"bytes_out,omitempty"` // gzip only
	XMLTokens int    `json:"xml_tokens,omitempty"`
	XMLDepth  int    `json:"xml_depth,omitempty"`
	Violation string `json:"violation,omitempty"`
	OK        bool   `json:"ok"`
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: "Run the ingest guards over an untrusted file",
		Long: `Process an untrusted file under the active limits policy.

The guard is chosen by extension: .gz inputs are decompressed with output
and expansion-ratio budgets, .xml inputs are token-walked with depth and
token budgets, everything else is read under the raw byte budget. Nothing
is written anywhere; the point is to find out whether the input would blow
a budget before real processing touches it.

With --journal, violations are recorded durably for later reporting.

Exit codes: 0 clean, 1 guard violation, 2 command error.

Examples:
  bulwark scan upload.gz
  bulwark scan feed.xml --policy limits.yaml --journal violations.db
  bulwark scan upload.gz --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PolicyPath, "policy", "", "limits policy file (YAML); defaults to the built-in policy")
	cmd.Flags().StringVar(&opts.JournalPath, "journal", "", "SQLite journal to record violations in")

	return cmd
}

func runScan(opts *ScanOptions, path string, cmd *cobra.Command) (err error) {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	limits := policy.Default()
	if opts.PolicyPath != "" {
		var errs []error
		limits, errs = policy.Load(opts.PolicyPath)
		if len(errs) > 0 {
			_ = formatter.Error(ErrCodeBadPolicy, "policy failed to load", errorStrings(errs))
			return NewExitError(ExitCommandError, "invalid policy")
		}
	}
	formatter.VerboseLog("policy: input=%d output=%d ratio=%d", limits.MaxInputBytes, limits.MaxOutputBytes, limits.MaxRatio)

	guardOpts := []ingest.Option{ingest.WithLogger(newScanLogger(cmd.ErrOrStderr(), limits))}
	if opts.JournalPath != "" {
		j, jerr := journal.Open(opts.JournalPath)
		if jerr != nil {
			_ = formatter.Error(ErrCodeJournal, jerr.Error(), nil)
			return WrapExitError(ExitCommandError, "opening journal", jerr)
		}
		// A failed journal close must surface: silently losing the record
		// of a violation defeats the journal's purpose.
		defer scoped.KeepFirst(&err, "close journal", j.Close)
		guardOpts = append(guardOpts, ingest.WithRecorder(j))
	}

	guard := ingest.New(limits, guardOpts...)
	result := ScanResult{Source: path, Kind: kindOf(path)}

	scanErr := scoped.WithFile(path, func(f *os.File) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		switch result.Kind {
		case "gzip":
			stats, ierr := guard.Inflate(ctx, io.Discard, f, path)
			result.BytesIn = stats.CompressedBytes
			result.BytesOut = stats.OutputBytes
			return ierr
		case "xml":
			stats, xerr := guard.DecodeXML(ctx, f, path)
			result.XMLTokens = stats.Tokens
			result.XMLDepth = stats.MaxDepth
			return xerr
		default:
			n, cerr := guard.Copy(ctx, io.Discard, f, path)
			result.BytesIn = n
			return cerr
		}
	})

	switch {
	case scanErr == nil:
		result.OK = true
	case admission.IsLimitError(scanErr):
		result.Violation = scanErr.Error()
	case errors.Is(scanErr, fs.ErrNotExist):
		_ = formatter.Error(ErrCodeNotFound, scanErr.Error(), nil)
		return WrapExitError(ExitCommandError, "scan failed", scanErr)
	default:
		// Not a guard decision: corrupt gzip, bad XML, I/O failure.
		_ = formatter.Error(ErrCodeGeneric, scanErr.Error(), nil)
		return WrapExitError(ExitCommandError, "scan failed", scanErr)
	}

	if renderErr := renderScan(formatter, result); renderErr != nil {
		return WrapExitError(ExitCommandError, "encoding output", renderErr)
	}
	if !result.OK {
		return NewExitError(ExitFailure, "guard violation")
	}
	return nil
}

func renderScan(f *OutputFormatter, r ScanResult) error {
	if f.Format == "json" {
		return f.JSON(r)
	}

	if r.OK {
		f.Textf("%s: clean (%s)", r.Source, r.Kind)
	} else {
		f.Textf("%s: VIOLATION: %s", r.Source, r.Violation)
	}
	switch r.Kind {
	case "gzip":
		f.Textf("  compressed %d bytes, inflated %d bytes", r.BytesIn, r.BytesOut)
	case "xml":
		f.Textf("  %d tokens, max depth %d", r.XMLTokens, r.XMLDepth)
	default:
		f.Textf("  read %d bytes", r.BytesIn)
	}
	return nil
}

// newScanLogger builds the guard diagnostics logger. The capped handler
// applies the policy's own log budget to the scan's log output, so a hostile
// input cannot turn diagnostics into a disk-filling side channel.
func newScanLogger(w io.Writer, limits policy.Limits) *slog.Logger {
	return slog.New(ingest.NewCappedHandler(slog.NewJSONHandler(w, nil), limits.MaxLogBytes))
}

// kindOf picks the guard for a path by extension.
func kindOf(path string) string {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return "gzip"
	case strings.HasSuffix(path, ".xml"):
		return "xml"
	default:
		return "raw"
	}
}

func errorStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}
