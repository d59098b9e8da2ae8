package recipe

// Aggregation methods.
const (
	MethodSum   = "sum"
	MethodMean  = "mean"
	MethodCount = "count"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Cutoff attaches an interpretation label to results at or above Min.
// Cutoffs are evaluated in declared order; the last one whose Min is
// satisfied wins, so authors list them ascending.
type Cutoff struct {
	Min   float64 `json:"min"`
	Label string  `json:"label"`
}

// ScoreDef declares one derived score: the items it aggregates, the
// method, an optional valid range, optional interpretation cutoffs, and
// nested subscales scored through the same pipeline.
type ScoreDef struct {
	Name           string     `json:"name"`
	Items          []string   `json:"items"`
	Method         string     `json:"method"`
	Range          *Range     `json:"range,omitempty"`
	Interpretation []Cutoff   `json:"interpretation,omitempty"`
	Subscales      []ScoreDef `json:"subscales,omitempty"`
}

// Invert declares the reverse-coding transform: listed items are mapped to
// (Scale.Min + Scale.Max) - value before aggregation.
type Invert struct {
	Items []string `json:"items"`
	Scale Range    `json:"scale"`
}

// Transforms groups the recipe's pre-aggregation transforms.
type Transforms struct {
	Invert *Invert `json:"invert,omitempty"`
}

// Recipe is a loaded scoring specification. Scores keep declaration order;
// a Recipe is immutable reference data once loaded.
type Recipe struct {
	Version    string     `json:"version"`
	Kind       string     `json:"kind"`
	Scores     []ScoreDef `json:"scores"`
	Transforms Transforms `json:"transforms"`
}

// inverted reports whether an item is reverse-coded, and under which scale.
func (r *Recipe) inverted(item string) (Range, bool) {
	if r.Transforms.Invert == nil {
		return Range{}, false
	}
	for _, code := range r.Transforms.Invert.Items {
		if code == item {
			return r.Transforms.Invert.Scale, true
		}
	}
	return Range{}, false
}
