package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DataType names for item value declarations.
const (
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeString  = "string"
	TypeBoolean = "boolean"
)

// Levels maps coded values (as written in the tabular file) to labels.
// Labels may be plain text or language maps.
type Levels map[string]Text

// SortedKeys returns level keys in sorted order for deterministic iteration.
func (l Levels) SortedKeys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalJSON implements json.Unmarshaler for Levels.
func (l *Levels) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*l = make(Levels, len(raw))
	for k, v := range raw {
		label, err := UnmarshalText(v)
		if err != nil {
			return fmt.Errorf("level %q: %w", k, err)
		}
		(*l)[k] = label
	}
	return nil
}

// MarshalJSON implements json.Marshaler for Levels.
func (l Levels) MarshalJSON() ([]byte, error) {
	out := make(map[string]Text, len(l))
	for k, v := range l {
		out[k] = v
	}
	return json.Marshal(out)
}

// Item describes a single instrument item (a column in the paired tabular
// file): its description, coded levels, value constraints, and declared type.
//
// Bounds semantics: Min/MaxValue are hard bounds (violation is an error),
// SoftMin/SoftMaxValue are soft bounds (violation is a warning). Nil means
// unbounded.
type Item struct {
	Description   Text
	Levels        Levels
	AllowedValues []string
	MinValue      *float64
	MaxValue      *float64
	SoftMinValue  *float64
	SoftMaxValue  *float64
	DataType      string
}

// itemJSON mirrors the on-disk sidecar field names.
type itemJSON struct {
	Description   json.RawMessage `json:"Description,omitempty"`
	Levels        Levels          `json:"Levels,omitempty"`
	AllowedValues []string        `json:"AllowedValues,omitempty"`
	MinValue      *float64        `json:"MinValue,omitempty"`
	MaxValue      *float64        `json:"MaxValue,omitempty"`
	SoftMinValue  *float64        `json:"SoftMinValue,omitempty"`
	SoftMaxValue  *float64        `json:"SoftMaxValue,omitempty"`
	DataType      string          `json:"DataType,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler for Item.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*it = Item{
		Levels:        raw.Levels,
		AllowedValues: raw.AllowedValues,
		MinValue:      raw.MinValue,
		MaxValue:      raw.MaxValue,
		SoftMinValue:  raw.SoftMinValue,
		SoftMaxValue:  raw.SoftMaxValue,
		DataType:      raw.DataType,
	}

	if len(raw.Description) > 0 {
		desc, err := UnmarshalText(raw.Description)
		if err != nil {
			return fmt.Errorf("Description: %w", err)
		}
		it.Description = desc
	}
	return nil
}

// MarshalJSON implements json.Marshaler for Item.
func (it Item) MarshalJSON() ([]byte, error) {
	raw := itemJSON{
		Levels:        it.Levels,
		AllowedValues: it.AllowedValues,
		MinValue:      it.MinValue,
		MaxValue:      it.MaxValue,
		SoftMinValue:  it.SoftMinValue,
		SoftMaxValue:  it.SoftMaxValue,
		DataType:      it.DataType,
	}
	if it.Description != nil {
		desc, err := json.Marshal(it.Description)
		if err != nil {
			return nil, err
		}
		raw.Description = desc
	}
	return json.Marshal(raw)
}

// Allowed reports whether a raw cell value is a member of the item's
// allowed-value set. An item without AllowedValues allows everything.
func (it Item) Allowed(value string) bool {
	if len(it.AllowedValues) == 0 {
		return true
	}
	for _, v := range it.AllowedValues {
		if v == value {
			return true
		}
	}
	return false
}

// LevelsEqual reports whether two items declare identical Levels maps,
// comparing both keys and labels.
func LevelsEqual(a, b Levels) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !TextEqual(av, bv) {
			return false
		}
	}
	return true
}
