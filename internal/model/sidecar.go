package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Section holds the fields of a named sidecar section (technical, study,
// scoring, metadata). Values are decoded JSON; text-bearing fields may be
// plain strings or language maps and are resolved by the i18n compiler.
type Section map[string]any

// Sidecar is a parsed JSON metadata document paired with a tabular data file.
// Known section names hold grouped fields; every other top-level key is an
// item definition keyed by item code.
type Sidecar struct {
	DefaultLanguage string
	Sections        map[string]Section
	Items           map[string]Item
}

// ParseSidecar decodes a sidecar document. knownSections lists the section
// names recognized by the schema registry; any other top-level key is
// treated as an item definition.
func ParseSidecar(data []byte, knownSections []string) (*Sidecar, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("sidecar is not a JSON object: %w", err)
	}

	known := make(map[string]bool, len(knownSections))
	for _, name := range knownSections {
		known[name] = true
	}

	sc := &Sidecar{
		Sections: make(map[string]Section),
		Items:    make(map[string]Item),
	}

	for key, val := range raw {
		switch {
		case key == "DefaultLanguage":
			if err := json.Unmarshal(val, &sc.DefaultLanguage); err != nil {
				return nil, fmt.Errorf("DefaultLanguage: %w", err)
			}
		case known[key]:
			var section Section
			if err := json.Unmarshal(val, &section); err != nil {
				return nil, fmt.Errorf("section %q: %w", key, err)
			}
			sc.Sections[key] = section
		default:
			var item Item
			if err := json.Unmarshal(val, &item); err != nil {
				return nil, fmt.Errorf("item %q: %w", key, err)
			}
			sc.Items[key] = item
		}
	}

	return sc, nil
}

// Document returns the sidecar in its on-disk document shape: sections and
// item definitions as top-level keys.
func (sc *Sidecar) Document() map[string]any {
	doc := make(map[string]any, len(sc.Sections)+len(sc.Items)+1)
	if sc.DefaultLanguage != "" {
		doc["DefaultLanguage"] = sc.DefaultLanguage
	}
	for name, section := range sc.Sections {
		doc[name] = section
	}
	for code, item := range sc.Items {
		doc[code] = item
	}
	return doc
}

// ItemCodes returns the sidecar's item codes in sorted order.
func (sc *Sidecar) ItemCodes() []string {
	codes := make([]string, 0, len(sc.Items))
	for code := range sc.Items {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// MergeSidecars resolves inheritance between a dataset-level sidecar and a
// more specific one. The override wins field-by-field, never document-
// wholesale: sections merge per field, items merge per item field. Either
// argument may be nil. The inputs are not mutated.
func MergeSidecars(base, override *Sidecar) *Sidecar {
	if base == nil && override == nil {
		return nil
	}
	if base == nil {
		return copySidecar(override)
	}
	if override == nil {
		return copySidecar(base)
	}

	merged := copySidecar(base)
	if override.DefaultLanguage != "" {
		merged.DefaultLanguage = override.DefaultLanguage
	}

	for name, section := range override.Sections {
		existing, ok := merged.Sections[name]
		if !ok {
			merged.Sections[name] = copySection(section)
			continue
		}
		for field, val := range section {
			existing[field] = val
		}
	}

	for code, item := range override.Items {
		existing, ok := merged.Items[code]
		if !ok {
			merged.Items[code] = item
			continue
		}
		merged.Items[code] = mergeItems(existing, item)
	}

	return merged
}

// mergeItems overlays non-empty override fields onto the base item.
func mergeItems(base, override Item) Item {
	out := base
	if override.Description != nil {
		out.Description = override.Description
	}
	if override.Levels != nil {
		out.Levels = override.Levels
	}
	if override.AllowedValues != nil {
		out.AllowedValues = override.AllowedValues
	}
	if override.MinValue != nil {
		out.MinValue = override.MinValue
	}
	if override.MaxValue != nil {
		out.MaxValue = override.MaxValue
	}
	if override.SoftMinValue != nil {
		out.SoftMinValue = override.SoftMinValue
	}
	if override.SoftMaxValue != nil {
		out.SoftMaxValue = override.SoftMaxValue
	}
	if override.DataType != "" {
		out.DataType = override.DataType
	}
	return out
}

func copySidecar(sc *Sidecar) *Sidecar {
	out := &Sidecar{
		DefaultLanguage: sc.DefaultLanguage,
		Sections:        make(map[string]Section, len(sc.Sections)),
		Items:           make(map[string]Item, len(sc.Items)),
	}
	for name, section := range sc.Sections {
		out.Sections[name] = copySection(section)
	}
	for code, item := range sc.Items {
		out.Items[code] = item
	}
	return out
}

func copySection(s Section) Section {
	out := make(Section, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
