package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datascry/scry/internal/dataset"
	"github.com/datascry/scry/internal/library"
	"github.com/datascry/scry/internal/matcher"
	"github.com/datascry/scry/internal/model"
	"github.com/datascry/scry/internal/schema"
)

// matchOptions holds flags for the match command.
type matchOptions struct {
	libraryDir string
	dbPath     string
	record     bool
}

// groupMatch pairs one observed instrument group with its match outcome.
type groupMatch struct {
	ObservedKey string               `json:"observed_key"`
	ItemCount   int                  `json:"item_count"`
	Result      *matcher.MatchResult `json:"result"` // nil = new instrument
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &matchOptions{}

	cmd := &cobra.Command{
		Use:   "match <dataset-dir>",
		Short: "Match imported instruments against the template library",
		Long: `Match each imported instrument's item set against the template library.

Data files are grouped per (task, category); each group's resolved sidecar
items are compared against every library template. A group with no
overlapping template is a new instrument, not an error. Groups matching
the same template are collapsed to one save operation via the template
key.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.libraryDir, "library", "", "directory of CUE template documents")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "template library database")
	cmd.Flags().BoolVar(&opts.record, "record", false, "record match decisions in the database (requires --db)")

	return cmd
}

func runMatch(rootOpts *RootOptions, opts *matchOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	if opts.libraryDir == "" && opts.dbPath == "" {
		return NewExitError(ExitCommandError, "either --library or --db is required")
	}
	if opts.record && opts.dbPath == "" {
		return NewExitError(ExitCommandError, "--record requires --db")
	}

	reg, err := schema.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "load schema registry", err)
	}

	ds, err := dataset.Load(dir, reg)
	if err != nil {
		return WrapExitError(ExitCommandError, "load dataset", err)
	}

	var store *library.Store
	if opts.dbPath != "" {
		store, err = library.OpenStore(opts.dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "open library store", err)
		}
		defer store.Close()
	}

	lib, err := loadLibrary(cmd, opts, store)
	if err != nil {
		return WrapExitError(ExitCommandError, "load template library", err)
	}
	formatter.VerboseLog("Library holds %d template(s)", len(lib.Templates))

	groups := observedGroups(ds)
	formatter.VerboseLog("Observed %d instrument group(s)", len(groups))

	matches := make([]groupMatch, 0, len(groups))
	saveOps := make(map[string]bool)
	for _, obs := range groups {
		result := matcher.Match(obs, lib)
		matches = append(matches, groupMatch{
			ObservedKey: obs.Key,
			ItemCount:   len(obs.Items),
			Result:      result,
		})
		if result != nil {
			saveOps[result.TemplateKey] = true
			if opts.record && store != nil {
				if _, err := store.RecordDecision(cmd.Context(), dir, obs.Key, result); err != nil {
					return WrapExitError(ExitCommandError, "record decision", err)
				}
			}
		}
	}

	if rootOpts.Format == "json" {
		out, err := model.MarshalCanonical(map[string]any{
			"matches":         matches,
			"save_operations": sortedKeys(saveOps),
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "serialize matches", err)
		}
		return formatter.SuccessRaw(out)
	}

	renderMatches(formatter, matches, saveOps)
	return nil
}

// loadLibrary resolves the template library from the CUE directory or the
// store, preferring the directory when both are given.
func loadLibrary(cmd *cobra.Command, opts *matchOptions, store *library.Store) (*model.Library, error) {
	if opts.libraryDir != "" {
		lib, err := library.LoadDir(opts.libraryDir)
		if err != nil {
			return nil, err
		}
		// Keep the store in sync when both sources are given.
		if store != nil {
			if err := store.SaveLibrary(cmd.Context(), lib); err != nil {
				return nil, err
			}
		}
		return lib, nil
	}
	return store.LoadLibrary(cmd.Context())
}

// observedGroups collects one observed item set per (task, category)
// group, in sorted key order. Items merge across the group's files through
// normal sidecar resolution.
func observedGroups(ds *dataset.Dataset) []matcher.Observed {
	byKey := make(map[string]matcher.Observed)
	var keys []string

	for _, f := range ds.Files {
		if f.NameErr != nil {
			continue
		}
		res := ds.ResolveSidecar(f)
		if res.Sidecar == nil || len(res.Sidecar.Items) == 0 {
			continue
		}

		key := fmt.Sprintf("task-%s_%s", f.Entities.Task, f.Entities.Suffix)
		obs, ok := byKey[key]
		if !ok {
			obs = matcher.Observed{Key: key, Items: make(map[string]model.Item)}
			byKey[key] = obs
			keys = append(keys, key)
		}
		for code, item := range res.Sidecar.Items {
			obs.Items[code] = item
		}
	}

	sort.Strings(keys)
	out := make([]matcher.Observed, 0, len(keys))
	for _, key := range keys {
		out = append(out, byKey[key])
	}
	return out
}

func renderMatches(f *OutputFormatter, matches []groupMatch, saveOps map[string]bool) {
	for _, m := range matches {
		if m.Result == nil {
			fmt.Fprintf(f.Writer, "%s: no match (%d items) - new instrument\n", m.ObservedKey, m.ItemCount)
			continue
		}
		r := m.Result
		fmt.Fprintf(f.Writer, "%s: %s (%s, %d/%d items overlap)\n",
			m.ObservedKey, r.TemplateKey, r.Confidence, r.OverlapCount, r.TemplateItems)
		if r.Ambiguous {
			fmt.Fprintf(f.Writer, "  tie with: %s (first by library order wins)\n", strings.Join(r.AmbiguousWith, ", "))
		}
		if len(r.OnlyInImport) > 0 {
			fmt.Fprintf(f.Writer, "  only in import: %s\n", strings.Join(r.OnlyInImport, ", "))
		}
		if len(r.OnlyInLibrary) > 0 {
			fmt.Fprintf(f.Writer, "  only in library: %s\n", strings.Join(r.OnlyInLibrary, ", "))
		}
	}
	if len(saveOps) > 0 {
		fmt.Fprintf(f.Writer, "Save operations: %s\n", strings.Join(sortedKeys(saveOps), ", "))
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
