package model

import "sort"

// Template is an immutable library entry: a reference item set for a known
// instrument plus citation and license metadata. Templates are authoritative
// for matching; they are never modified by a run.
type Template struct {
	// Key uniquely identifies the template within the library
	// (e.g. "pss10"). Callers use it to deduplicate repeated
	// administrations matching the same template.
	Key string `json:"key"`

	// Name is the instrument's display name.
	Name string `json:"name"`

	// Items maps item code to its reference definition.
	Items map[string]Item `json:"items"`

	// Citation is the canonical publication reference.
	Citation string `json:"citation,omitempty"`

	// License names the instrument's usage license.
	License string `json:"license,omitempty"`
}

// ItemCodes returns the template's item codes in sorted order.
func (t Template) ItemCodes() []string {
	codes := make([]string, 0, len(t.Items))
	for code := range t.Items {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Library is an ordered collection of templates. Declaration order is the
// tie-break when two templates match at equal confidence, so order is part
// of the library's identity and must be preserved by loaders.
type Library struct {
	Templates []Template
}

// Lookup returns the template with the given key, or false.
func (l *Library) Lookup(key string) (Template, bool) {
	for _, t := range l.Templates {
		if t.Key == key {
			return t, true
		}
	}
	return Template{}, false
}
