package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bulwark/internal/policy"
	"bulwark/internal/scoped"
)

// PolicyValidationResult holds validation results.
type PolicyValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// NewPolicyCommand creates the policy command group.
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and validate limits policies",
	}

	cmd.AddCommand(newPolicyValidateCommand(rootOpts))
	cmd.AddCommand(newPolicyShowCommand(rootOpts))
	cmd.AddCommand(newPolicyInitCommand(rootOpts))

	return cmd
}

func newPolicyValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a limits policy document",
		Long: `Validate a YAML policy against the limits schema.

Checks shape (positive integers, no unknown knobs) and cross-field rules.
All problems are reported in one pass rather than failing on the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPolicyValidate(rootOpts, args[0], cmd)
		},
	}
}

func runPolicyValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	_, errs := policy.Load(path)
	result := PolicyValidationResult{Valid: len(errs) == 0, Errors: errorStrings(errs)}

	if formatter.Format == "json" {
		if jerr := formatter.JSON(result); jerr != nil {
			return WrapExitError(ExitCommandError, "encoding output", jerr)
		}
	} else if result.Valid {
		formatter.Textf("%s: valid", path)
	} else {
		formatter.Textf("%s: invalid", path)
		for _, msg := range result.Errors {
			formatter.Textf("  %s", msg)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "policy invalid")
	}
	return nil
}

func newPolicyShowCommand(rootOpts *RootOptions) *cobra.Command {
	var policyPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective limits policy",
		Long: `Print the limits that scan would enforce.

Without --policy this is the built-in default policy; with --policy it is
the file's values merged over the schema defaults.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPolicyShow(rootOpts, policyPath, cmd)
		},
	}

	cmd.Flags().StringVar(&policyPath, "policy", "", "limits policy file (YAML)")
	return cmd
}

func newPolicyInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init <file>",
		Short: "Write a starter limits policy",
		Long: `Write a policy file populated with the default limits.

The file is a plain YAML document; edit the knobs and pass it to
scan with --policy. Refuses to overwrite an existing file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPolicyInit(rootOpts, args[0], cmd)
		},
	}
}

func runPolicyInit(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, serr := os.Stat(path); serr == nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("%s already exists", path), nil)
		return NewExitError(ExitCommandError, "refusing to overwrite")
	}

	doc, merr := yaml.Marshal(policy.Default())
	if merr != nil {
		return WrapExitError(ExitCommandError, "encoding policy", merr)
	}

	werr := scoped.WriteFile(path, func(w io.Writer) error {
		_, err := w.Write(doc)
		return err
	})
	if werr != nil {
		_ = formatter.Error(ErrCodeGeneric, werr.Error(), nil)
		return WrapExitError(ExitCommandError, "writing policy", werr)
	}

	if formatter.Format == "json" {
		if jerr := formatter.JSON(map[string]string{"path": path}); jerr != nil {
			return WrapExitError(ExitCommandError, "encoding output", jerr)
		}
		return nil
	}
	formatter.Textf("wrote %s", path)
	return nil
}

func runPolicyShow(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	limits := policy.Default()
	if path != "" {
		var errs []error
		limits, errs = policy.Load(path)
		if len(errs) > 0 {
			_ = formatter.Error(ErrCodeBadPolicy, "policy failed to load", errorStrings(errs))
			return NewExitError(ExitCommandError, "invalid policy")
		}
	}

	if formatter.Format == "json" {
		if jerr := formatter.JSON(limits); jerr != nil {
			return WrapExitError(ExitCommandError, "encoding output", jerr)
		}
		return nil
	}

	formatter.Textf("max_input_bytes:  %d", limits.MaxInputBytes)
	formatter.Textf("max_output_bytes: %d", limits.MaxOutputBytes)
	formatter.Textf("max_ratio:        %d", limits.MaxRatio)
	formatter.Textf("max_xml_depth:    %d", limits.MaxXMLDepth)
	formatter.Textf("max_xml_tokens:   %d", limits.MaxXMLTokens)
	formatter.Textf("max_log_bytes:    %d", limits.MaxLogBytes)
	formatter.Textf("max_pattern_len:  %d", limits.MaxPatternLen)
	return nil
}
