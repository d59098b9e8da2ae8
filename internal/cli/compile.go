package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/datascry/scry/internal/i18n"
	"github.com/datascry/scry/internal/model"
	"github.com/datascry/scry/internal/schema"
)

// compileOptions holds flags for the compile command.
type compileOptions struct {
	lang string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile <sidecar.json>",
		Short: "Compile a sidecar to a single language",
		Long: `Resolve every language-map field of a sidecar to one language.

Selection order per field: the target language, then the document's declared
default language, then the first available language in sorted order. Each
fallback is reported as a note. Output is canonical JSON, byte-identical
across runs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.lang, "lang", "", "target language tag (default: the registry's default language)")

	return cmd
}

func runCompile(rootOpts *RootOptions, opts *compileOptions, path string, cmd *cobra.Command) error {
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

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read sidecar", err)
	}
	sc, err := model.ParseSidecar(data, reg.Sections)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse sidecar", err)
	}

	target := opts.lang
	if target == "" {
		target = reg.DefaultLanguage
	}

	compiled, notes := i18n.Compile(sc, target)
	for _, note := range notes {
		formatter.VerboseLog("note: %s", note.Error())
	}

	if rootOpts.Format == "json" {
		out, err := model.MarshalCanonical(map[string]any{
			"sidecar": compiled.Document(),
			"notes":   notes,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "serialize sidecar", err)
		}
		return formatter.SuccessRaw(out)
	}

	out, err := model.MarshalCanonical(compiled.Document())
	if err != nil {
		return WrapExitError(ExitCommandError, "serialize sidecar", err)
	}
	return formatter.SuccessRaw(out)
}
