package matcher

import (
	"sort"

	"github.com/datascry/scry/internal/model"
)

// Confidence is the categorical similarity grade of a match.
type Confidence string

const (
	ConfidenceExact  Confidence = "exact"
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Confidence thresholds on the overlap ratio. The ratio is computed
// against the LARGER of the two item sets, so extra items on either side
// dilute it symmetrically.
const (
	highThreshold   = 0.9
	mediumThreshold = 0.6
)

// Observed is a freshly imported instrument's item set, keyed by item code.
type Observed struct {
	// Key identifies the observed group (e.g. "task-stress_run-1") for
	// caller-side bookkeeping. The matcher itself ignores it.
	Key string

	Items map[string]model.Item
}

// MatchResult describes the best template match for an observed item set.
type MatchResult struct {
	// TemplateKey identifies the winning template. Callers deduplicate
	// repeated administrations of the same instrument by this key.
	TemplateKey string `json:"template_key"`

	Confidence    Confidence `json:"confidence"`
	OverlapCount  int        `json:"overlap_count"`
	TemplateItems int        `json:"template_items"`
	LevelsMatch   bool       `json:"levels_match"`

	// OnlyInImport and OnlyInLibrary list the non-overlapping item codes
	// on each side, sorted.
	OnlyInImport  []string `json:"only_in_import"`
	OnlyInLibrary []string `json:"only_in_library"`

	// Ambiguous is set when another template scored the same confidence;
	// AmbiguousWith lists the losing keys in library order. The winner is
	// always the first by declared order.
	Ambiguous     bool     `json:"ambiguous,omitempty"`
	AmbiguousWith []string `json:"ambiguous_with,omitempty"`
}

// candidate is one template's similarity scoring against the observed set.
type candidate struct {
	template    model.Template
	overlap     int
	ratio       float64
	levelsMatch bool
	confidence  Confidence
}

// Match returns the best template match for the observed items, or nil when
// no template overlaps at all. A nil result is the valid "new instrument"
// outcome, not an error.
//
// Confidence, first rule that fires: exact (ratio 1.0 and identical levels
// on every overlapping item), high (ratio >= 0.9), medium (ratio >= 0.6),
// low (any positive overlap). Candidates are scored in library declaration
// order; the first candidate at the best confidence wins and any tie is
// flagged.
func Match(observed Observed, library *model.Library) *MatchResult {
	if len(observed.Items) == 0 || library == nil {
		return nil
	}

	var candidates []candidate
	for _, tpl := range library.Templates {
		c := scoreCandidate(observed, tpl)
		if c.overlap == 0 {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	var ties []string
	for _, c := range candidates[1:] {
		switch {
		case rank(c.confidence) > rank(best.confidence):
			best = c
			ties = nil
		case rank(c.confidence) == rank(best.confidence):
			ties = append(ties, c.template.Key)
		}
	}

	result := &MatchResult{
		TemplateKey:   best.template.Key,
		Confidence:    best.confidence,
		OverlapCount:  best.overlap,
		TemplateItems: len(best.template.Items),
		LevelsMatch:   best.levelsMatch,
		OnlyInImport:  onlyIn(observed.Items, best.template.Items),
		OnlyInLibrary: onlyIn(best.template.Items, observed.Items),
	}
	if len(ties) > 0 {
		result.Ambiguous = true
		result.AmbiguousWith = ties
	}
	return result
}

// scoreCandidate computes overlap, ratio, levels agreement, and the
// confidence tier for one template.
func scoreCandidate(observed Observed, tpl model.Template) candidate {
	c := candidate{template: tpl, levelsMatch: true}

	for code, obsItem := range observed.Items {
		tplItem, ok := tpl.Items[code]
		if !ok {
			continue
		}
		c.overlap++
		if !model.LevelsEqual(obsItem.Levels, tplItem.Levels) {
			c.levelsMatch = false
		}
	}
	if c.overlap == 0 {
		return c
	}

	larger := len(observed.Items)
	if len(tpl.Items) > larger {
		larger = len(tpl.Items)
	}
	c.ratio = float64(c.overlap) / float64(larger)

	switch {
	case c.ratio == 1.0 && c.levelsMatch:
		c.confidence = ConfidenceExact
	case c.ratio >= highThreshold:
		c.confidence = ConfidenceHigh
	case c.ratio >= mediumThreshold:
		c.confidence = ConfidenceMedium
	default:
		c.confidence = ConfidenceLow
	}
	return c
}

// rank orders confidence tiers for comparison.
func rank(c Confidence) int {
	switch c {
	case ConfidenceExact:
		return 4
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// onlyIn returns the sorted item codes present in a but not in b.
func onlyIn(a, b map[string]model.Item) []string {
	out := []string{}
	for code := range a {
		if _, ok := b[code]; !ok {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}
