package recipe

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError reports a defect in a recipe document.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError converts a raw CUE error to a CompileError with position
// info where available.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// CompileFile loads a recipe document from a CUE file.
func CompileFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	recipeVal := v.LookupPath(cue.ParsePath("recipe"))
	if !recipeVal.Exists() {
		return nil, &CompileError{
			Field:   "recipe",
			Message: "document has no top-level recipe struct",
			Pos:     v.Pos(),
		}
	}
	return CompileRecipe(recipeVal)
}

// CompileRecipe parses a CUE value into a Recipe. Uses the CUE SDK's Go
// API directly; field iteration preserves declaration order, which is part
// of the recipe's meaning (scores and items evaluate in declared order).
func CompileRecipe(v cue.Value) (*Recipe, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rec := &Recipe{}

	versionVal := v.LookupPath(cue.ParsePath("version"))
	if !versionVal.Exists() {
		return nil, &CompileError{Field: "version", Message: "version is required", Pos: v.Pos()}
	}
	version, err := versionVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	rec.Version = version

	if kindVal := v.LookupPath(cue.ParsePath("kind")); kindVal.Exists() {
		kind, err := kindVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		rec.Kind = kind
	}

	scoresVal := v.LookupPath(cue.ParsePath("scores"))
	if !scoresVal.Exists() {
		return nil, &CompileError{Field: "scores", Message: "at least one score is required", Pos: v.Pos()}
	}
	rec.Scores, err = parseScores(scoresVal)
	if err != nil {
		return nil, err
	}
	if len(rec.Scores) == 0 {
		return nil, &CompileError{Field: "scores", Message: "at least one score is required", Pos: scoresVal.Pos()}
	}

	if invertVal := v.LookupPath(cue.ParsePath("transforms.invert")); invertVal.Exists() {
		invert, err := parseInvert(invertVal)
		if err != nil {
			return nil, err
		}
		rec.Transforms.Invert = invert
	}

	return rec, nil
}

// parseScores parses the scores struct into ordered ScoreDefs.
func parseScores(v cue.Value) ([]ScoreDef, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var scores []ScoreDef
	for iter.Next() {
		def, err := parseScoreDef(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		scores = append(scores, def)
	}
	return scores, nil
}

// parseScoreDef parses one score definition, recursing into subscales.
func parseScoreDef(name string, v cue.Value) (ScoreDef, error) {
	def := ScoreDef{Name: name}

	items, err := parseStringList(v.LookupPath(cue.ParsePath("items")))
	if err != nil {
		return def, &CompileError{
			Field:   "scores." + name + ".items",
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	if len(items) == 0 {
		return def, &CompileError{
			Field:   "scores." + name + ".items",
			Message: "a score must reference at least one item",
			Pos:     v.Pos(),
		}
	}
	def.Items = items

	methodVal := v.LookupPath(cue.ParsePath("method"))
	if !methodVal.Exists() {
		return def, &CompileError{
			Field:   "scores." + name + ".method",
			Message: "method is required",
			Pos:     v.Pos(),
		}
	}
	method, err := methodVal.String()
	if err != nil {
		return def, formatCUEError(err)
	}
	if method != MethodSum && method != MethodMean && method != MethodCount {
		return def, &CompileError{
			Field:   "scores." + name + ".method",
			Message: fmt.Sprintf("invalid method %q, must be \"sum\", \"mean\", or \"count\"", method),
			Pos:     methodVal.Pos(),
		}
	}
	def.Method = method

	if rangeVal := v.LookupPath(cue.ParsePath("range")); rangeVal.Exists() {
		rng, err := parseRange(rangeVal)
		if err != nil {
			return def, &CompileError{
				Field:   "scores." + name + ".range",
				Message: err.Error(),
				Pos:     rangeVal.Pos(),
			}
		}
		def.Range = &rng
	}

	if interpVal := v.LookupPath(cue.ParsePath("interpretation")); interpVal.Exists() {
		cutoffs, err := parseCutoffs(interpVal)
		if err != nil {
			return def, &CompileError{
				Field:   "scores." + name + ".interpretation",
				Message: err.Error(),
				Pos:     interpVal.Pos(),
			}
		}
		def.Interpretation = cutoffs
	}

	if subVal := v.LookupPath(cue.ParsePath("subscales")); subVal.Exists() {
		iter, err := subVal.Fields()
		if err != nil {
			return def, formatCUEError(err)
		}
		for iter.Next() {
			sub, err := parseScoreDef(iter.Label(), iter.Value())
			if err != nil {
				return def, err
			}
			def.Subscales = append(def.Subscales, sub)
		}
	}

	return def, nil
}

// parseInvert parses the reverse-coding transform.
func parseInvert(v cue.Value) (*Invert, error) {
	items, err := parseStringList(v.LookupPath(cue.ParsePath("items")))
	if err != nil {
		return nil, &CompileError{Field: "transforms.invert.items", Message: err.Error(), Pos: v.Pos()}
	}

	scaleVal := v.LookupPath(cue.ParsePath("scale"))
	if !scaleVal.Exists() {
		return nil, &CompileError{
			Field:   "transforms.invert.scale",
			Message: "invert requires the source scale bounds",
			Pos:     v.Pos(),
		}
	}
	scale, err := parseRange(scaleVal)
	if err != nil {
		return nil, &CompileError{Field: "transforms.invert.scale", Message: err.Error(), Pos: scaleVal.Pos()}
	}

	return &Invert{Items: items, Scale: scale}, nil
}

// parseRange parses {min, max}.
func parseRange(v cue.Value) (Range, error) {
	var rng Range

	minVal := v.LookupPath(cue.ParsePath("min"))
	maxVal := v.LookupPath(cue.ParsePath("max"))
	if !minVal.Exists() || !maxVal.Exists() {
		return rng, fmt.Errorf("range requires both min and max")
	}

	var err error
	if rng.Min, err = minVal.Float64(); err != nil {
		return rng, err
	}
	if rng.Max, err = maxVal.Float64(); err != nil {
		return rng, err
	}
	if rng.Max < rng.Min {
		return rng, fmt.Errorf("range max %v is below min %v", rng.Max, rng.Min)
	}
	return rng, nil
}

// parseCutoffs parses the interpretation list of {min, label}.
func parseCutoffs(v cue.Value) ([]Cutoff, error) {
	list, err := v.List()
	if err != nil {
		return nil, err
	}

	var cutoffs []Cutoff
	for list.Next() {
		elem := list.Value()
		var c Cutoff
		minVal := elem.LookupPath(cue.ParsePath("min"))
		labelVal := elem.LookupPath(cue.ParsePath("label"))
		if !minVal.Exists() || !labelVal.Exists() {
			return nil, fmt.Errorf("cutoff requires both min and label")
		}
		if c.Min, err = minVal.Float64(); err != nil {
			return nil, err
		}
		if c.Label, err = labelVal.String(); err != nil {
			return nil, err
		}
		cutoffs = append(cutoffs, c)
	}
	return cutoffs, nil
}

// parseStringList parses a CUE list of strings.
func parseStringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, fmt.Errorf("list is required")
	}
	list, err := v.List()
	if err != nil {
		return nil, err
	}

	var out []string
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
