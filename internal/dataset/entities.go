package dataset

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/datascry/scry/internal/model"
)

// Entities holds the parsed key-value naming tokens of a data filename:
// sub-<label>[_ses-<label>]_task-<label>_<suffix>.<ext>
type Entities struct {
	Sub    string `json:"sub"`
	Ses    string `json:"ses,omitempty"`
	Task   string `json:"task"`
	Suffix string `json:"suffix"`
	Ext    string `json:"ext"`
}

// ParticipantID returns the full participant identifier ("sub-001").
func (e Entities) ParticipantID() string {
	return "sub-" + e.Sub
}

// SessionID returns the full session identifier ("ses-01"), or "" when the
// filename carries no session entity.
func (e Entities) SessionID() string {
	if e.Ses == "" {
		return ""
	}
	return "ses-" + e.Ses
}

// NameError describes a filename grammar violation. Code is one of the
// naming codes in package model.
type NameError struct {
	Code    string
	Message string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// labelPattern constrains entity labels: alphanumeric only, no separators.
var labelPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// entityOrder is the required entity sequence. ses is optional but must
// appear in this position when present.
var entityOrder = []struct {
	key      string
	required bool
}{
	{"sub", true},
	{"ses", false},
	{"task", true},
}

// ParseFilename parses a data filename against the naming grammar.
// Returns the entities parsed so far plus a NameError on the first
// violation; the partial entities let callers still attribute the file to a
// participant when only a later token is malformed.
func ParseFilename(name string) (Entities, *NameError) {
	var ents Entities

	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return ents, &NameError{
			Code:    model.CodeMissingEntity,
			Message: fmt.Sprintf("filename %q has no extension", name),
		}
	}
	ents.Ext = name[dot:]
	base := name[:dot]

	tokens := strings.Split(base, "_")
	if len(tokens) < 2 {
		return ents, &NameError{
			Code:    model.CodeMissingEntity,
			Message: fmt.Sprintf("filename %q has no category suffix", name),
		}
	}

	// Last token is the bare category suffix, the rest are key-label pairs.
	suffix := tokens[len(tokens)-1]
	pairs := tokens[:len(tokens)-1]

	if strings.Contains(suffix, "-") || !labelPattern.MatchString(suffix) {
		return ents, &NameError{
			Code:    model.CodeMalformedEntity,
			Message: fmt.Sprintf("category suffix %q is malformed", suffix),
		}
	}
	ents.Suffix = suffix

	idx := 0
	for _, pair := range pairs {
		key, label, ok := strings.Cut(pair, "-")
		if !ok {
			return ents, &NameError{
				Code:    model.CodeMalformedEntity,
				Message: fmt.Sprintf("entity %q is not a key-label pair", pair),
			}
		}

		// Advance through the expected order, skipping optional entities.
		for idx < len(entityOrder) && entityOrder[idx].key != key {
			if entityOrder[idx].required {
				return ents, &NameError{
					Code:    model.CodeMissingEntity,
					Message: fmt.Sprintf("missing required entity %q before %q", entityOrder[idx].key, pair),
				}
			}
			idx++
		}
		if idx == len(entityOrder) {
			return ents, &NameError{
				Code:    model.CodeMalformedEntity,
				Message: fmt.Sprintf("unexpected entity %q", pair),
			}
		}

		if !labelPattern.MatchString(label) {
			return ents, &NameError{
				Code:    model.CodeMalformedEntity,
				Message: fmt.Sprintf("entity %q has a malformed label", pair),
			}
		}

		switch key {
		case "sub":
			ents.Sub = label
		case "ses":
			ents.Ses = label
		case "task":
			ents.Task = label
		}
		idx++
	}

	for _, ent := range entityOrder {
		switch {
		case ent.key == "sub" && ents.Sub == "":
			return ents, &NameError{
				Code:    model.CodeMissingEntity,
				Message: fmt.Sprintf("filename %q is missing the sub entity", name),
			}
		case ent.key == "task" && ents.Task == "":
			return ents, &NameError{
				Code:    model.CodeMissingEntity,
				Message: fmt.Sprintf("filename %q is missing the task entity", name),
			}
		}
	}

	return ents, nil
}
