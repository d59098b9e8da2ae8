package model

import "fmt"

// Severity classifies an issue for downstream gating: errors block
// save/export, warnings require acknowledgment, info is advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue codes (E100-E199).
const (
	// Structural errors (E100-E109)
	CodeMissingRootFile    = "E100" // required dataset-root file absent (fatal)
	CodeUnreadablePath     = "E101" // path exists but cannot be read
	CodeUnknownParticipant = "E102" // data file references participant not in table
	CodeMissingSidecar     = "E103" // no sidecar resolvable for a data file

	// Naming errors (E110-E119)
	CodeMissingEntity   = "E110" // required filename entity absent
	CodeMalformedEntity = "E111" // entity label violates the grammar
	CodeUnknownSuffix   = "E112" // category suffix not in the registry

	// Schema errors (E120-E129)
	CodeMissingRequiredField    = "E120" // required sidecar field absent
	CodeLevelNotAllowed         = "E121" // Levels key outside the allowed-value set
	CodeMissingRecommendedField = "E122" // recommended sidecar field absent (info)
	CodeInvalidDatatype         = "E123" // declared datatype outside the vocabulary

	// Value errors (E130-E139)
	CodeTypeMismatch    = "E130" // cell value does not parse as declared type
	CodeValueNotAllowed = "E131" // cell value outside allowed-value set
	CodeHardBound       = "E132" // cell value violates hard bound

	// Value warnings (E140-E149)
	CodeSoftBound         = "E140" // cell value violates soft bound
	CodeExtraObservations = "E141" // single-observation file has extra data rows

	// Recipe errors (E150-E159)
	CodeRecipeMissingItem = "E150" // score references an item with no column

	// Informational (E160-E169)
	CodeMatchAmbiguous   = "E160" // template tie at equal confidence
	CodeLanguageFallback = "E161" // i18n fell back from the target language
)

// Issue is a single typed finding. Issues sharing a code are grouped for
// reporting; within a group, files sort by path for deterministic output.
type Issue struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Evidence string   `json:"evidence,omitempty"`
	FixHint  string   `json:"fix_hint,omitempty"`
	DocURL   string   `json:"doc_url,omitempty"`
}

// Error implements the error interface so issues can flow through error
// plumbing where convenient. The engines never return issues as errors;
// this exists for log formatting.
func (i Issue) Error() string {
	if i.File != "" && i.Line > 0 {
		return fmt.Sprintf("[%s] %s:%d: %s", i.Code, i.File, i.Line, i.Message)
	}
	if i.File != "" {
		return fmt.Sprintf("[%s] %s: %s", i.Code, i.File, i.Message)
	}
	return fmt.Sprintf("[%s] %s", i.Code, i.Message)
}
