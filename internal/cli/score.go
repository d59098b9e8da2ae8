package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/datascry/scry/internal/dataset"
	"github.com/datascry/scry/internal/model"
	"github.com/datascry/scry/internal/recipe"
	"github.com/datascry/scry/internal/schema"
)

// scoreOptions holds flags for the score command.
type scoreOptions struct {
	recipePath string
	outPath    string
}

// NewScoreCommand creates the score command.
func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score <dataset-dir>",
		Short: "Compute derived scores from a recipe",
		Long: `Compute the recipe's derived scores over a validated dataset.

Produces one row per (participant, session). Scores referencing missing
items are skipped with a finding; the rest of the recipe still runs.
Out-of-range results keep their value and are flagged, never clamped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.recipePath, "recipe", "", "recipe document (CUE)")
	cmd.Flags().StringVarP(&opts.outPath, "output", "o", "", "write the scored table as TSV to this file")
	cmd.MarkFlagRequired("recipe")

	return cmd
}

func runScore(rootOpts *RootOptions, opts *scoreOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	reg, err := schema.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "load schema registry", err)
	}

	rec, err := recipe.CompileFile(opts.recipePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "compile recipe", err)
	}
	formatter.VerboseLog("Recipe %s (%s) with %d top-level score(s)", rec.Version, rec.Kind, len(rec.Scores))

	ds, err := dataset.Load(dir, reg)
	if err != nil {
		return WrapExitError(ExitCommandError, "load dataset", err)
	}

	rows := recipe.BuildRows(ds)
	formatter.VerboseLog("Built %d row(s) over %d column(s)", len(rows.Rows), len(rows.Columns))

	table, issues := recipe.Score(rec, rows)

	for _, issue := range issues {
		formatter.VerboseLog("skipped: %s", issue.Error())
	}

	if opts.outPath != "" {
		f, err := os.Create(opts.outPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "create output file", err)
		}
		defer f.Close()
		if err := table.WriteTSV(f); err != nil {
			return WrapExitError(ExitCommandError, "write scored table", err)
		}
		formatter.VerboseLog("Wrote %s", opts.outPath)
	}

	if rootOpts.Format == "json" {
		out, err := model.MarshalCanonical(map[string]any{
			"table":  table,
			"issues": issues,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "serialize scored table", err)
		}
		if err := formatter.SuccessRaw(out); err != nil {
			return err
		}
	} else if opts.outPath == "" {
		if err := table.WriteTSV(formatter.Writer); err != nil {
			return WrapExitError(ExitCommandError, "write scored table", err)
		}
	}

	if len(issues) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d score(s) skipped", len(issues)))
	}
	return nil
}
