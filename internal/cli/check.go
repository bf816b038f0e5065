package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statebox/internal/spec"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Strict bool // treat cycle warnings as failures
}

// StoreCheck is the check result for one store.
type StoreCheck struct {
	Name     string                 `json:"name"`
	Keys     []string               `json:"keys"`
	Effects  int                    `json:"effects"`
	Guards   int                    `json:"guards"`
	Errors   []spec.ValidationError `json:"errors,omitempty"`
	Warnings []spec.CycleWarning    `json:"warnings,omitempty"`
}

// CheckResult holds check results for every store.
type CheckResult struct {
	Valid  bool         `json:"valid"`
	Stores []StoreCheck `json:"stores"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Validate store definitions",
		Long: `Validate the CUE store definitions in a file or package directory.

Reports unknown fields and broken expressions as errors, and effect
cycles as warnings. Cycles are legal to declare but fail at run time
once the values stop settling.

Exit codes:
  0 - All stores valid
  1 - Validation errors (or warnings with --strict)
  2 - Command error (path not found, CUE does not compile)

Examples:
  statebox check ./stores.cue
  statebox check ./stores --strict --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on cycle warnings")

	return cmd
}

func runCheck(opts *CheckOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	defs, err := loadDefinitions(f, path)
	if err != nil {
		return err
	}

	result := CheckResult{Valid: true, Stores: make([]StoreCheck, 0, len(defs))}
	errCount, warnCount := 0, 0
	for i := range defs {
		def := &defs[i]
		f.VerboseLog("Checking store: %s", def.Name)
		check := StoreCheck{
			Name:     def.Name,
			Keys:     def.Keys,
			Effects:  len(def.Effects),
			Guards:   len(def.Guards),
			Errors:   spec.Validate(def),
			Warnings: spec.AnalyzeCycles(def),
		}
		errCount += len(check.Errors)
		warnCount += len(check.Warnings)
		result.Stores = append(result.Stores, check)
	}
	result.Valid = errCount == 0 && (!opts.Strict || warnCount == 0)

	if f.JSON() {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeCheckFailed,
				Message: fmt.Sprintf("%d error(s), %d warning(s)", errCount, warnCount),
			}
		}
		if err := f.Encode(response); err != nil {
			return err
		}
	} else {
		outputCheckText(f, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("check failed with %d error(s), %d warning(s)", errCount, warnCount))
	}
	return nil
}

func outputCheckText(f *OutputFormatter, result CheckResult) {
	w := f.Writer
	for _, s := range result.Stores {
		mark := "✓"
		if len(s.Errors) > 0 {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (%d fields, %d effects, %d guards)\n", mark, s.Name, len(s.Keys), s.Effects, s.Guards)
		for _, e := range s.Errors {
			if e.Line > 0 {
				fmt.Fprintf(w, "  line %d: %s %s: %s\n", e.Line, e.Code, e.Field, e.Message)
			} else {
				fmt.Fprintf(w, "  %s %s: %s\n", e.Code, e.Field, e.Message)
			}
		}
		for _, warn := range s.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn.Message)
		}
	}

	fmt.Fprintln(w)
	if result.Valid {
		fmt.Fprintln(w, "✓ All stores valid")
	} else {
		fmt.Fprintln(w, "✗ Check failed")
	}
}
