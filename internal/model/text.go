package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Text is a sealed interface for sidecar text fields that may be either a
// plain string or a language map. Only PlainText and LangMap implement it.
//
// The two variants are treated uniformly by validation ("field present");
// only the i18n compiler resolves a LangMap down to a single language.
type Text interface {
	textValue() // Sealed - only these types implement it
}

// PlainText is a single-language text value.
type PlainText string

func (PlainText) textValue() {}

// MarshalJSON implements json.Marshaler for PlainText.
func (t PlainText) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

// LangMap maps BCP 47 language tags to translated text.
type LangMap map[string]string

func (LangMap) textValue() {}

// Languages returns the available language tags in sorted order.
// Sorted so that "first available" fallback is deterministic.
func (m LangMap) Languages() []string {
	tags := make([]string, 0, len(m))
	for tag := range m {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// UnmarshalText decodes a JSON value into a Text variant.
// A JSON string becomes PlainText; a JSON object of string values becomes
// a LangMap. Anything else is rejected.
func UnmarshalText(data []byte) (Text, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return PlainText(s), nil

	case '{':
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("language map must have string values: %w", err)
		}
		return LangMap(m), nil

	default:
		return nil, fmt.Errorf("text field must be a string or a language map, got %s", string(data))
	}
}

// TextEqual reports whether two Text values are equal, comparing variant
// and content. Used by the template matcher for levels comparison.
func TextEqual(a, b Text) bool {
	switch av := a.(type) {
	case PlainText:
		bv, ok := b.(PlainText)
		return ok && av == bv
	case LangMap:
		bv, ok := b.(LangMap)
		if !ok || len(av) != len(bv) {
			return false
		}
		for tag, label := range av {
			if bv[tag] != label {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		return false
	}
}
