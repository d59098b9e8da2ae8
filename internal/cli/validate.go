package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datascry/scry/internal/dataset"
	"github.com/datascry/scry/internal/schema"
	"github.com/datascry/scry/internal/validator"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <dataset-dir>",
		Short: "Validate a dataset tree against the schema registry",
		Long: `Validate a dataset tree against the schema registry.

Checks root files, the filename grammar, resolved sidecars, required
fields, and every observed item value. All findings accumulate into one
deterministic report; only a missing required root file stops traversal.

Exit codes: 0 valid, 1 validation errors found, 2 command error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	reg, err := schema.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "load schema registry", err)
	}
	formatter.VerboseLog("Schema registry %s loaded", reg.Version)

	ds, err := dataset.Load(dir, reg)
	if err != nil {
		formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "load dataset", err)
	}
	formatter.VerboseLog("Found %d data file(s) under %s", len(ds.Files), dir)

	report := validator.Validate(cmd.Context(), ds, reg)

	if opts.Format == "json" {
		out, err := report.MarshalCanonical()
		if err != nil {
			return WrapExitError(ExitCommandError, "serialize report", err)
		}
		if err := formatter.SuccessRaw(out); err != nil {
			return err
		}
	} else {
		renderReport(formatter, report)
	}

	if !report.Valid() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", report.Summary.TotalErrors))
	}
	return nil
}

// renderReport prints the grouped report view as text.
func renderReport(f *OutputFormatter, report *validator.Report) {
	w := f.Writer

	fmt.Fprintf(w, "Files: %d  Errors: %d  Warnings: %d  (registry %s)\n",
		report.Summary.TotalFiles, report.Summary.TotalErrors,
		report.Summary.TotalWarnings, report.Summary.RegistryVersion)
	if report.Summary.Partial {
		fmt.Fprintln(w, "NOTE: run was cancelled; this report is partial")
	}

	renderGroups(f, "ERROR", report.Formatted.Errors)
	renderGroups(f, "WARNING", report.Formatted.Warnings)

	if report.Valid() && report.Summary.TotalWarnings == 0 {
		fmt.Fprintln(w, "Dataset is valid.")
	}
}

func renderGroups(f *OutputFormatter, label string, groups []validator.IssueGroup) {
	for _, g := range groups {
		fmt.Fprintf(f.Writer, "\n[%s] %s: %s (%d file(s))\n", g.Code, label, g.Message, len(g.Files))
		if g.FixHint != "" {
			fmt.Fprintf(f.Writer, "  hint: %s\n", g.FixHint)
		}
		for _, file := range g.Files {
			if file.Line > 0 {
				fmt.Fprintf(f.Writer, "  %s:%d", file.File, file.Line)
			} else {
				fmt.Fprintf(f.Writer, "  %s", file.File)
			}
			if file.Evidence != "" {
				fmt.Fprintf(f.Writer, "  (%s)", file.Evidence)
			}
			fmt.Fprintln(f.Writer)
		}
		if g.DocURL != "" && f.Verbose {
			fmt.Fprintf(f.Writer, "  doc: %s\n", g.DocURL)
		}
	}
}
